package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"aave_pnl/internal/domain/entity"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int      `yaml:"idleTimeoutSeconds"`
	AllowedOrigins      []string `yaml:"allowedOrigins"`
	SwaggerEnabled      bool     `yaml:"swaggerEnabled"`
	PprofEnabled        bool     `yaml:"pprofEnabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// PerformanceConfig holds RPC and fan-out settings.
type PerformanceConfig struct {
	RPCCallTimeoutSeconds    int `yaml:"rpc_call_timeout_seconds"`
	ConnectionTimeoutSeconds int `yaml:"connection_timeout_seconds"`
	// BalanceConcurrency of 1 means sequential balance reads paced by BalanceQueryDelayMillis.
	BalanceConcurrency      int `yaml:"balance_concurrency"`
	BalanceQueryDelayMillis int `yaml:"balance_query_delay_millis"`
	// EndpointCooldownSeconds > 0 enables the degraded-endpoint memo.
	EndpointCooldownSeconds int `yaml:"endpoint_cooldown_seconds"`
}

// CoinGeckoConfig holds price feed settings.
type CoinGeckoConfig struct {
	APIKey                   string            `yaml:"apiKey"`
	BaseURL                  string            `yaml:"baseURL"`
	ClientTimeoutSeconds     int               `yaml:"clientTimeoutSeconds"`
	VsCurrency               string            `yaml:"vsCurrency"`
	CacheTTLSeconds          int               `yaml:"cacheTTLSeconds"`
	HistoricalCooldownMillis int               `yaml:"historicalCooldownMillis"`
	MaxIDsPerRequest         int               `yaml:"maxIdsPerRequest"`
	FeedIDs                  map[string]string `yaml:"feedIds"`
}

// ExplorerConfig holds Etherscan-style API settings.
type ExplorerConfig struct {
	APIKey               string  `yaml:"apiKey"`
	ClientTimeoutSeconds int     `yaml:"clientTimeoutSeconds"`
	RequestsPerSecond    float64 `yaml:"requestsPerSecond"`
}

// ChainOverride replaces parts of a built-in chain definition.
type ChainOverride struct {
	Identifier     string   `yaml:"identifier"`
	RPCURLs        []string `yaml:"rpcUrls"`
	ExplorerAPIURL string   `yaml:"explorerApiUrl"`
	LogScanWindow  uint64   `yaml:"logScanWindow"`
}

// DiscordConfig holds bot credentials.
type DiscordConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BotToken       string `yaml:"botToken"`
	ChannelID      string `yaml:"channelId"`
	BaseURL        string `yaml:"baseURL"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// StorageConfig selects the report store.
type StorageConfig struct {
	Driver     string `yaml:"driver"` // sqlite, postgres or none
	DSN        string `yaml:"dsn"`
	SQLitePath string `yaml:"sqlitePath"`
}

// ImagesConfig controls where rendered cards are written and served.
type ImagesConfig struct {
	Dir        string `yaml:"dir"`
	PublicPath string `yaml:"publicPath"`
}

// DataConfig points at local data files.
type DataConfig struct {
	TokensDir   string `yaml:"tokensDir"`
	WalletsFile string `yaml:"walletsFile"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Performance PerformanceConfig `yaml:"performance"`
	CoinGecko   CoinGeckoConfig   `yaml:"coingecko"`
	Explorer    ExplorerConfig    `yaml:"explorer"`
	Chains      []ChainOverride   `yaml:"chains"`
	Discord     DiscordConfig     `yaml:"discord"`
	Storage     StorageConfig     `yaml:"storage"`
	Images      ImagesConfig      `yaml:"images"`
	Data        DataConfig        `yaml:"data"`
}

// DefaultFeedIDs maps upper-cased symbols to CoinGecko ids.
func DefaultFeedIDs() map[string]string {
	return map[string]string{
		"USDT":   "tether",
		"USDC":   "usd-coin",
		"USDBC":  "bridged-usd-coin-base",
		"WBNB":   "wbnb",
		"BNB":    "wbnb",
		"BTCB":   "binance-bitcoin",
		"ETH":    "ethereum",
		"WETH":   "weth",
		"CBETH":  "coinbase-wrapped-staked-eth",
		"FDUSD":  "first-digital-usd",
		"CAKE":   "pancakeswap-token",
		"WSTETH": "wrapped-steth",
	}
}

// LoadDotEnv loads secrets from dotenv files that exist. Existing environment variables win.
func LoadDotEnv(files ...string) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logrus.Warnf("Failed to load env file %s: %v", f, err)
			}
			continue
		}
		logrus.Infof("Loaded environment from %s", f)
	}
}

// Load reads the YAML configuration file, overlays environment secrets and applies defaults.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes and finishes the config like Load does.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EXPLORER_API_KEY"); v != "" {
		cfg.Explorer.APIKey = v
	} else if v := os.Getenv("BSCSCAN_API_KEY"); v != "" && cfg.Explorer.APIKey == "" {
		cfg.Explorer.APIKey = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.CoinGecko.APIKey = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		cfg.Discord.BotToken = v
	}
	if v := os.Getenv("DISCORD_CHANNEL_ID"); v != "" {
		cfg.Discord.ChannelID = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		// historical reports serialize price lookups, so the write side needs room
		cfg.Server.WriteTimeoutSeconds = 180
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		cfg.Server.IdleTimeoutSeconds = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
		logrus.Infof("performance.rpc_call_timeout_seconds not set, defaulting to %d", cfg.Performance.RPCCallTimeoutSeconds)
	}
	if cfg.Performance.ConnectionTimeoutSeconds <= 0 {
		cfg.Performance.ConnectionTimeoutSeconds = 10
	}
	if cfg.Performance.BalanceConcurrency <= 0 {
		cfg.Performance.BalanceConcurrency = 1
	}
	if cfg.Performance.BalanceQueryDelayMillis < 0 {
		cfg.Performance.BalanceQueryDelayMillis = 0
	} else if cfg.Performance.BalanceQueryDelayMillis == 0 && cfg.Performance.BalanceConcurrency == 1 {
		cfg.Performance.BalanceQueryDelayMillis = 100
		logrus.Infof("performance.balance_query_delay_millis not set, defaulting to %d ms", cfg.Performance.BalanceQueryDelayMillis)
	}

	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.CoinGecko.ClientTimeoutSeconds <= 0 {
		cfg.CoinGecko.ClientTimeoutSeconds = 10
	}
	if cfg.CoinGecko.VsCurrency == "" {
		cfg.CoinGecko.VsCurrency = "usd"
	}
	if cfg.CoinGecko.CacheTTLSeconds <= 0 {
		cfg.CoinGecko.CacheTTLSeconds = 60
	}
	if cfg.CoinGecko.HistoricalCooldownMillis <= 0 {
		cfg.CoinGecko.HistoricalCooldownMillis = 1200
		logrus.Infof("coingecko.historicalCooldownMillis not set, defaulting to %d ms", cfg.CoinGecko.HistoricalCooldownMillis)
	}
	if cfg.CoinGecko.MaxIDsPerRequest <= 0 {
		cfg.CoinGecko.MaxIDsPerRequest = 50
	}
	feedIDs := DefaultFeedIDs()
	for k, v := range cfg.CoinGecko.FeedIDs {
		feedIDs[strings.ToUpper(k)] = v
	}
	cfg.CoinGecko.FeedIDs = feedIDs

	if cfg.Explorer.ClientTimeoutSeconds <= 0 {
		cfg.Explorer.ClientTimeoutSeconds = 15
	}
	if cfg.Explorer.RequestsPerSecond <= 0 {
		// free explorer tiers allow 5 req/s
		cfg.Explorer.RequestsPerSecond = 4
	}

	if cfg.Discord.BaseURL == "" {
		cfg.Discord.BaseURL = "https://discord.com/api/v10"
	}
	if cfg.Discord.TimeoutSeconds <= 0 {
		cfg.Discord.TimeoutSeconds = 15
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/aave_pnl.db"
	}

	if cfg.Images.Dir == "" {
		cfg.Images.Dir = "public/pnl-cards"
	}
	if cfg.Images.PublicPath == "" {
		cfg.Images.PublicPath = "/cards"
	}
	if cfg.Data.TokensDir == "" {
		cfg.Data.TokensDir = "data/tokens"
	}
	if cfg.Data.WalletsFile == "" {
		cfg.Data.WalletsFile = "data/wallets.txt"
	}
}

// Validate reports configuration problems as *entity.ConfigurationError.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Storage.DSN == "" {
			return &entity.ConfigurationError{Field: "storage.dsn", Reason: "postgres driver requires a DSN or DATABASE_URL"}
		}
	default:
		return &entity.ConfigurationError{Field: "storage.driver", Reason: fmt.Sprintf("unknown driver %q", c.Storage.Driver)}
	}
	if c.Discord.Enabled && (c.Discord.BotToken == "" || c.Discord.ChannelID == "") {
		return &entity.ConfigurationError{Field: "discord", Reason: "enabled but DISCORD_BOT_TOKEN or DISCORD_CHANNEL_ID is missing"}
	}
	for i, ch := range c.Chains {
		if ch.Identifier == "" {
			return &entity.ConfigurationError{Field: fmt.Sprintf("chains[%d].identifier", i), Reason: "identifier is required"}
		}
	}
	return nil
}
