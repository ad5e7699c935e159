package walletloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"

	"github.com/samber/lo"
)

const defaultWalletFilePath = "data/wallets.txt"

// FileSource reads batch wallets from a text file, one per line:
//
//	<address> [chain] [label...]
//
// Fields are separated by whitespace or commas. Text after # is ignored.
type FileSource struct {
	path string
	warn func(msg string, args ...any)
}

// NewFileSource returns a port.WalletSource over path, defaulting to data/wallets.txt.
func NewFileSource(path string, warn func(msg string, args ...any)) port.WalletSource {
	if path == "" {
		path = defaultWalletFilePath
	}
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &FileSource{path: path, warn: warn}
}

// Wallets returns entries in file order. Malformed addresses are skipped with a warning,
// and a repeated (address, chain) pair keeps its first occurrence.
func (s *FileSource) Wallets() ([]entity.Wallet, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open wallet file %s: %w", s.path, err)
	}
	defer f.Close()

	var wallets []entity.Wallet
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		w, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if err := entity.ValidateWalletAddress(w.Address); err != nil {
			s.warn("Skipping malformed wallet line", "file", s.path, "line", lineNum, "address", w.Address)
			continue
		}
		key := strings.ToLower(w.Address) + "@" + w.Chain
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		wallets = append(wallets, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wallet file %s: %w", s.path, err)
	}
	return wallets, nil
}

func parseLine(line string) (entity.Wallet, bool) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return entity.Wallet{}, false
	}
	w := entity.Wallet{Address: fields[0]}
	if len(fields) > 1 {
		w.Chain = strings.ToLower(fields[1])
	}
	if len(fields) > 2 {
		w.Label = strings.Join(fields[2:], " ")
	}
	return w, true
}

// Collect merges explicit addresses with src (which may be nil). Entries without a chain get
// defaultChain, a repeated (address, chain) pair keeps its first occurrence, and any malformed
// address fails the whole batch.
func Collect(addresses []string, src port.WalletSource, defaultChain string) ([]entity.Wallet, error) {
	wallets := lo.Map(addresses, func(addr string, _ int) entity.Wallet {
		return entity.Wallet{Address: strings.TrimSpace(addr)}
	})
	if src != nil {
		loaded, err := src.Wallets()
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, loaded...)
	}

	defaultChain = strings.ToLower(strings.TrimSpace(defaultChain))
	for i := range wallets {
		if wallets[i].Chain == "" {
			wallets[i].Chain = defaultChain
		}
	}
	wallets = lo.UniqBy(wallets, func(w entity.Wallet) string {
		return strings.ToLower(w.Address) + "@" + w.Chain
	})
	if len(wallets) == 0 {
		return nil, &entity.InvalidInputError{Field: "wallets", Reason: "no wallets given"}
	}
	for _, w := range wallets {
		if err := entity.ValidateWalletAddress(w.Address); err != nil {
			return nil, fmt.Errorf("%s: %w", w.Address, err)
		}
	}
	return wallets, nil
}
