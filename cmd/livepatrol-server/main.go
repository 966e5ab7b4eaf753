package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgewatch/livepatrol/internal/config"
	"github.com/edgewatch/livepatrol/internal/http/handler"
	mw "github.com/edgewatch/livepatrol/internal/http/middleware"
	"github.com/edgewatch/livepatrol/internal/recorder"
	"github.com/edgewatch/livepatrol/internal/redis"
	"github.com/edgewatch/livepatrol/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	RedisAddr     string `yaml:"redis_address"`
	ServerAddr    string `yaml:"server_address"`
	Port          string `yaml:"port"`
	RecordingsDir string `yaml:"recordings_dir"`
	FFmpegBin     string `yaml:"ffmpeg_bin"`
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	SessionKey    string `yaml:"session_key"`
}

var serverConfig *Config

func init() {
	// Handle version display
	handleVersion()
}

func main() {
	// Read env
	isDev := os.Getenv("ENV") == "dev"

	// Load config
	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create Zap logger
	log := buildLogger()
	defer log.Sync()
	log = log.Named("main")

	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer() // Configure Gin's logger to use Zap
	r := gin.New()

	// Build services
	rdb := redis.NewClient(serverConfig.RedisAddr, 0, log)
	repo := redis.NewRepository(log, rdb)
	resolver := recorder.NewLiveResolver(log)
	supervisor := recorder.NewSupervisor(log, serverConfig.FFmpegBin)
	recsvc := service.NewRecorderService(log, repo.Channels, repo.Settings, resolver, supervisor, serverConfig.RecordingsDir)
	authsvc, err := service.NewAuthService(log, isDev, serverConfig.RedisAddr,
		serverConfig.AdminUsername, serverConfig.AdminPassword, []byte(serverConfig.SessionKey))
	if err != nil {
		log.Fatal("auth service creation failed", zap.Error(err))
	}

	// Apply Gin middlewares
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID()) // Attach request ID for tracing; early in the chain so it's available everywhere

		if isDev { // Enable CORS for local Vite dev
			r.Use(cors.New(cors.Config{
				AllowOrigins:     []string{"http://localhost:5173", "http://localhost:4173", "http://localhost:3000", "http://127.0.0.1:3000"},
				AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"X-Request-ID", "Content-Type", "Authorization"},
				ExposeHeaders:    []string{"X-Request-ID", "X-Total-Count", "X-Cache", "X-Summary-Generated-At"},
				AllowCredentials: true, // Allow cookies in dev
				MaxAge:           12 * time.Hour,
			}))
		} else { // Behind Nginx + TLS
			r.SetTrustedProxies([]string{"127.0.0.1"})
			r.Use(secure.New(secure.Config{
				SSLProxyHeaders: map[string]string{
					"X-Forwarded-Proto": "https", // Fix scheme for secure cookies
				},
			}))
		}

		r.Use(authsvc.UserSession.Middleware()) // Attach cookie-based session for auth

		r.Use(accessLog(log)) // Observability (logger, tracing)

		r.Use(mw.LimitConcurrentRequests(64))

		r.Use(func(c *gin.Context) {
			// Enforce a hard 10MB max request body.
			// Protects against oversized or drip-fed request body ("slow body" / RUDY DoS)
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 10<<20)
			c.Next()
		})
	}

	// Register route handlers
	{
		// --- Public endpoints (no auth) ---
		{
			r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

			{
				usrsesshndler := handler.NewUserSessionsHandler(log, authsvc)
				r.POST("/api/login", usrsesshndler.Login)
				r.POST("/api/logout", usrsesshndler.Logout)
			}
		}

		// --- Protected endpoints (auth required) ---
		{
			authed := r.Group("", mw.RequireSessionAuth)
			requireValidID := mw.RequireValidRoomID()

			{
				channelshndlr := handler.NewChannelsHandler(log, recsvc)

				// --- Channel collection ---
				authed.POST("/api/channels", channelshndlr.CreateChannel) // create one
				authed.GET("/api/channels", channelshndlr.GetChannelList) // get list

				// --- Channel resource ---
				authed.GET("/api/channels/:id", requireValidID, channelshndlr.GetChannel)          // get one
				authed.PATCH("/api/channels/:id", requireValidID, channelshndlr.ModifyChannel)     // update one (modify/partial-update)
				authed.DELETE("/api/channels/:id", requireValidID, channelshndlr.DeleteChannel)    // delete one
				authed.GET("/api/channels/:id/logs", requireValidID, channelshndlr.GetChannelLogs) // capture log tail

				// --- Channel views ---
				authed.GET("/api/channels/status", channelshndlr.Status)
			}

			{
				recordingshndlr := handler.NewRecordingsHandler(log, recsvc)

				// --- Recording attempts ---
				authed.POST("/api/channels/:id/record", requireValidID, recordingshndlr.StartRecording)
				authed.DELETE("/api/channels/:id/record", requireValidID, recordingshndlr.StopRecording)

				// --- Finished recordings ---
				authed.GET("/api/channels/:id/recordings", requireValidID, recordingshndlr.ListRecordings)
				authed.DELETE("/api/channels/:id/recordings/:name", requireValidID, recordingshndlr.DeleteRecording)
			}

			{
				patrolhndlr := handler.NewPatrolHandler(log, recsvc)

				// --- Patrol loop ---
				authed.GET("/api/patrol", patrolhndlr.Get)
				authed.POST("/api/patrol", patrolhndlr.Start)
				authed.DELETE("/api/patrol", patrolhndlr.Stop)
			}

			{
				settingshndlr := handler.NewSettingsHandler(log, recsvc)

				// --- Global settings ---
				authed.GET("/api/settings", settingshndlr.Get)
				authed.PUT("/api/settings", settingshndlr.Put)
			}

			if isDev {
				debughndlr := handler.NewDebugHandler(recsvc)
				authed.GET("/api/debug/registry", debughndlr.Registry)
			}
		}
	}

	httpsrv := &http.Server{
		Addr:              serverConfig.ServerAddr + ":" + serverConfig.Port,
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		WriteTimeout:      15 * time.Second, // avoid forever-hangs on writes
		IdleTimeout:       60 * time.Second, // keep-alive cap
		MaxHeaderBytes:    1 << 20,          // 1MB cap
	}

	go func() {
		log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
		if err := httpsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Block until SIGINT/SIGTERM, then stop captures so provisional files
	// get finalized before exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))

	recsvc.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpsrv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("server closed")
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("livepatrol %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// accessLog is a Gin middleware that records HTTP request/response details with Zap after handling.
func accessLog(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		// collect all errors from Gin context
		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		// errors.Join returns nil if errs is empty
		joinedErr := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Duration("latency", latency),
		}
		if joinedErr != nil {
			fields = append(fields, zap.Error(joinedErr))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// helpers

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}

func loadConfig() error {
	data, err := os.ReadFile("livepatrol-server.yaml")
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, &serverConfig); err != nil {
		return err
	}

	if serverConfig.RecordingsDir == "" {
		serverConfig.RecordingsDir = "recordings"
	}
	if serverConfig.FFmpegBin == "" {
		serverConfig.FFmpegBin = "ffmpeg"
	}

	return nil
}
