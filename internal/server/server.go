// Package server exposes the formula recognition pipeline over HTTP and
// WebSocket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP mux with all routes registered.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/procesar_fotograma", s.corsMiddleware(s.handleFrame))
	mux.HandleFunc("/procesar_imagen", s.corsMiddleware(s.handleImage))
	mux.HandleFunc("/procesar_pdf", s.corsMiddleware(s.handlePDF))
	mux.HandleFunc("/procesar_texto", s.corsMiddleware(s.handleText))
	mux.HandleFunc("/formulas", s.corsMiddleware(s.handleFormulas))
	mux.HandleFunc("/ws/frames", s.handleFrameStream)
	mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Start runs the HTTP server until the context is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.Timeout,
		WriteTimeout:      s.config.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
