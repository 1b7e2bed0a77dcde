package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/victoMR/testFlow/internal/cache"
	"github.com/victoMR/testFlow/internal/server"
	"github.com/victoMR/testFlow/internal/store"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP recognition API",
	Long: `Start an HTTP server exposing the formula recognition endpoints.

Endpoints:
  POST /procesar_fotograma - Recognize one camera frame
  POST /procesar_imagen    - Recognize an uploaded image
  POST /procesar_pdf       - Extract formulas from a PDF
  POST /procesar_texto     - Convert plain mathematical text to LaTeX
  GET  /formulas           - List the most used stored formulas
  GET  /ws/frames          - WebSocket frame stream
  GET  /health             - Health check
  GET  /metrics            - Prometheus metrics

Examples:
  testflow serve
  testflow serve --port 3000`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := slog.Default()

	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	processor := buildProcessor(cfg, engine)

	var st store.Store
	if cfg.Store.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Store.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		st = pg
	} else {
		logger.Info("no database configured, using in-memory formula store")
		st = store.NewMemoryStore()
	}
	defer st.Close()

	var c cache.Cache = cache.Noop{}
	if cfg.Cache.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", "error", err)
		} else {
			c = rc
			defer rc.Close()
		}
	}

	srv := server.NewServer(server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		Timeout:     cfg.Server.Timeout,
		MaxPages:    cfg.Document.MaxPages,
		CacheTTL:    cfg.Cache.TTL,
	}, processor, st, c, logger)

	return srv.Start(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "host address to bind to")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("cors-origin", "*", "allowed CORS origin")
	serveCmd.Flags().Duration("timeout", 60*time.Second, "request timeout")
}
