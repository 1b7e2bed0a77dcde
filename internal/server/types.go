package server

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/victoMR/testFlow/internal/cache"
	"github.com/victoMR/testFlow/internal/document"
	"github.com/victoMR/testFlow/internal/store"
)

// documentProcessor is the slice of document.Processor the server needs.
type documentProcessor interface {
	ProcessDocument(ctx context.Context, pages []document.Page) (*document.Result, error)
}

// frameRecognizer processes single camera frames with stream-local detection
// state, so consecutive near-identical frames reuse the cached verdict.
type frameRecognizer interface {
	ProcessFrame(ctx context.Context, img image.Image) (*document.Result, error)
}

// singlePageAdapter routes frames through the document pipeline when the
// processor offers no stream-local sessions (tests, custom processors).
type singlePageAdapter struct {
	p documentProcessor
}

func (a singlePageAdapter) ProcessFrame(ctx context.Context, img image.Image) (*document.Result, error) {
	return a.p.ProcessDocument(ctx, []document.Page{{Number: 1, Kind: document.PageImage, Image: img}})
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	Timeout     time.Duration
	MaxPages    int
	CacheTTL    time.Duration
}

// Server exposes the formula recognition pipeline over HTTP.
type Server struct {
	config    Config
	processor documentProcessor
	store     store.Store
	cache     cache.Cache
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	// frames serves the single-frame endpoint; newFrameSession creates one
	// session per websocket stream.
	frames          frameRecognizer
	newFrameSession func() frameRecognizer
}

// NewServer wires the server with its dependencies. Store and cache may be
// nil; they default to the in-memory store and a no-op cache.
func NewServer(config Config, processor documentProcessor, st store.Store, c cache.Cache, logger *slog.Logger) *Server {
	if st == nil {
		st = store.NewMemoryStore()
	}
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 32
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 50
	}
	s := &Server{
		config:    config,
		processor: processor,
		store:     st,
		cache:     c,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 20,
			WriteBufferSize: 1 << 16,
			// Browser clients stream camera frames from arbitrary origins;
			// access control happens upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if fp, ok := processor.(interface{ NewFrameSession() *document.FrameSession }); ok {
		s.newFrameSession = func() frameRecognizer { return fp.NewFrameSession() }
	} else {
		s.newFrameSession = func() frameRecognizer { return singlePageAdapter{p: processor} }
	}
	s.frames = s.newFrameSession()
	return s
}

// FormulaResult is one recognized formula in a response body.
type FormulaResult struct {
	Formula    string  `json:"formula"`
	Tipo       string  `json:"tipo"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page,omitempty"`
	LatexImage string  `json:"latex_image,omitempty"`
}

// SingleResponse is the body of the frame, image and text endpoints.
type SingleResponse struct {
	Status string `json:"status"`
	FormulaResult
}

// DocumentResponse is the body of the PDF endpoint.
type DocumentResponse struct {
	Status   string          `json:"status"`
	RunID    string          `json:"run_id"`
	Formulas []FormulaResult `json:"formulas"`
}

// ErrorResponse is the error envelope shared by all endpoints.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
