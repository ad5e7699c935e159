package restapi

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouterOptions configures the non-API routes.
type RouterOptions struct {
	AllowedOrigins []string
	SwaggerEnabled bool
	SwaggerSpec    string // file served at /docs/swagger.yaml
	CardsDir       string
	CardsPath      string
	EnablePprof    bool
	Logger         *zap.Logger
}

// ZapLoggerMiddleware logs one line per request.
func ZapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String(), fields...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}

// SetupRouter wires middleware, API v1 routes, metrics, docs and card files.
func SetupRouter(h *ReportHandler, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(ZapLoggerMiddleware(logger.Named("HTTP")), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/chains", h.ListChains)
		v1.GET("/positions/:wallet", h.GetPositions)
		v1.GET("/positions/:wallet/health", h.GetHealth)
		v1.POST("/reports", h.CreateReport)
		v1.GET("/reports/:wallet/export", h.ExportReport)
		v1.POST("/share/discord", h.ShareDiscord)
	}

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.CardsDir != "" && opts.CardsPath != "" {
		router.Static(opts.CardsPath, opts.CardsDir)
	}

	if opts.EnablePprof {
		debug := router.Group("/debug/pprof")
		{
			debug.GET("/", gin.WrapF(pprof.Index))
			debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
			debug.GET("/profile", gin.WrapF(pprof.Profile))
			debug.GET("/symbol", gin.WrapF(pprof.Symbol))
			debug.POST("/symbol", gin.WrapF(pprof.Symbol))
			debug.GET("/trace", gin.WrapF(pprof.Trace))
			for _, profile := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
				debug.GET("/"+profile, gin.WrapH(pprof.Handler(profile)))
			}
		}
		logger.Warn("pprof endpoints enabled under /debug/pprof")
	}

	if opts.SwaggerEnabled && opts.SwaggerSpec != "" {
		router.StaticFile("/docs/swagger.yaml", opts.SwaggerSpec)
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.yaml")))
		logger.Info("Swagger UI enabled", zap.String("path", "/swagger/index.html"))
	}

	return router
}
