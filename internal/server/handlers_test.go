package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victoMR/testFlow/internal/document"
	"github.com/victoMR/testFlow/internal/latex"
	"github.com/victoMR/testFlow/internal/store"
)

type fakeProcessor struct {
	result *document.Result
	err    error
	calls  int
	pages  []document.Page
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, pages []document.Page) (*document.Result, error) {
	f.calls++
	f.pages = pages
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testServer(t *testing.T, proc documentProcessor) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(Config{CORSOrigin: "*", MaxUploadMB: 4, MaxPages: 50}, proc, nil, nil, logger)
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func resultWith(formulas ...document.Formula) *document.Result {
	return &document.Result{
		RunID:    "test-run",
		State:    document.StateComplete,
		Formulas: formulas,
	}
}

func TestHandleFrame_ReturnsBestFormula(t *testing.T) {
	proc := &fakeProcessor{result: resultWith(
		document.Formula{Page: 1, LaTeX: `x^{2}`, Type: latex.TypeAlgebraic, Score: 60},
		document.Formula{Page: 1, LaTeX: `\int x dx`, Type: latex.TypeIntegral, Score: 95, Persist: true},
	)}
	s := testServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/procesar_fotograma", bytes.NewReader(encodePNG(t)))
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SingleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, `\int x dx`, resp.Formula)
	assert.Equal(t, "Integral", resp.Tipo)
	assert.Equal(t, 95.0, resp.Confidence)
	assert.NotEmpty(t, resp.LatexImage)
	assert.Equal(t, 1, proc.calls)
}

func TestHandleFrame_PersistsHighScoringFormulas(t *testing.T) {
	proc := &fakeProcessor{result: resultWith(
		document.Formula{Page: 1, LaTeX: `x^{2}`, Type: latex.TypeAlgebraic, Score: 60},
		document.Formula{Page: 1, LaTeX: `\int x dx`, Type: latex.TypeIntegral, Score: 95, Persist: true},
	)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	s := NewServer(Config{MaxUploadMB: 4}, proc, st, nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/procesar_fotograma", bytes.NewReader(encodePNG(t)))
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := st.Get(context.Background(), `\int x dx`)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Uses)

	_, err = st.Get(context.Background(), `x^{2}`)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHandleFrame_NoFormulaIs404(t *testing.T) {
	proc := &fakeProcessor{result: resultWith()}
	s := testServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/procesar_fotograma", bytes.NewReader(encodePNG(t)))
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no_formula", resp.Status)
}

func TestHandleFrame_InvalidImage(t *testing.T) {
	proc := &fakeProcessor{result: resultWith()}
	s := testServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/procesar_fotograma", strings.NewReader("not an image"))
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, proc.calls)
}

func TestHandleFrame_EmptyBody(t *testing.T) {
	s := testServer(t, &fakeProcessor{result: resultWith()})

	req := httptest.NewRequest(http.MethodPost, "/procesar_fotograma", nil)
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFrame_GetRejected(t *testing.T) {
	s := testServer(t, &fakeProcessor{result: resultWith()})

	req := httptest.NewRequest(http.MethodGet, "/procesar_fotograma", nil)
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleFrame_ProcessorError(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("model unavailable")}
	s := testServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/procesar_fotograma", bytes.NewReader(encodePNG(t)))
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Details, "model unavailable")
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleImage_ReturnsFormula(t *testing.T) {
	proc := &fakeProcessor{result: resultWith(
		document.Formula{Page: 1, LaTeX: `\frac{1}{2}`, Type: latex.TypeEquation, Score: 80},
	)}
	s := testServer(t, proc)

	body, contentType := multipartBody(t, "imagen", "formula.png", encodePNG(t))
	req := httptest.NewRequest(http.MethodPost, "/procesar_imagen", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handleImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SingleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, `\frac{1}{2}`, resp.Formula)
	require.Len(t, proc.pages, 1)
	assert.Equal(t, document.PageImage, proc.pages[0].Kind)
}

func TestHandleImage_MissingField(t *testing.T) {
	s := testServer(t, &fakeProcessor{result: resultWith()})

	body, contentType := multipartBody(t, "wrong_field", "formula.png", encodePNG(t))
	req := httptest.NewRequest(http.MethodPost, "/procesar_imagen", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handleImage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePDF_InvalidUpload(t *testing.T) {
	proc := &fakeProcessor{result: resultWith()}
	s := testServer(t, proc)

	body, contentType := multipartBody(t, "pdf", "doc.pdf", []byte("not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/procesar_pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handlePDF(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, proc.calls)
}

func TestHandleText_ConvertsAndResponds(t *testing.T) {
	proc := &fakeProcessor{result: resultWith(
		document.Formula{Page: 1, LaTeX: `x^{2}+\frac{1}{2}`, Type: latex.TypeAlgebraic, Score: 75},
	)}
	s := testServer(t, proc)

	body, err := json.Marshal(map[string]string{"texto": "x^2 + 1/2"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/procesar_texto", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleText(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SingleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	// The handler wraps the converted text in math delimiters before the
	// pipeline extracts blocks from it.
	require.Len(t, proc.pages, 1)
	assert.Equal(t, document.PageText, proc.pages[0].Kind)
	assert.True(t, strings.HasPrefix(proc.pages[0].Text, "$"))
	assert.Contains(t, proc.pages[0].Text, `\frac{1}{2}`)
}

func TestHandleText_EmptyTexto(t *testing.T) {
	s := testServer(t, &fakeProcessor{result: resultWith()})

	req := httptest.NewRequest(http.MethodPost, "/procesar_texto", strings.NewReader(`{"texto":"   "}`))
	rec := httptest.NewRecorder()
	s.handleText(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleText_InvalidJSON(t *testing.T) {
	s := testServer(t, &fakeProcessor{result: resultWith()})

	req := httptest.NewRequest(http.MethodPost, "/procesar_texto", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.handleText(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFormulas_ListsStored(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	_, err := st.Upsert(context.Background(), `\int x dx`, "Integral")
	require.NoError(t, err)
	_, err = st.Upsert(context.Background(), `\int x dx`, "Integral")
	require.NoError(t, err)
	_, err = st.Upsert(context.Background(), `x^{2}`, "Algebraic expression")
	require.NoError(t, err)

	s := NewServer(Config{}, &fakeProcessor{result: resultWith()}, st, nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/formulas", nil)
	rec := httptest.NewRecorder()
	s.handleFormulas(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status   string          `json:"status"`
		Formulas []formulaRecord `json:"formulas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Formulas, 2)
	assert.Equal(t, `\int x dx`, resp.Formulas[0].Formula)
	assert.Equal(t, 2, resp.Formulas[0].Usos)
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, &fakeProcessor{result: resultWith()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestCORSMiddleware_PreflightShortCircuits(t *testing.T) {
	proc := &fakeProcessor{result: resultWith()}
	s := testServer(t, proc)

	handler := s.corsMiddleware(s.handleFrame)
	req := httptest.NewRequest(http.MethodOptions, "/procesar_fotograma", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 0, proc.calls)
}

func TestRouter_RoutesRegistered(t *testing.T) {
	s := testServer(t, &fakeProcessor{result: resultWith()})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleFrame_CacheServesRepeatedFrames(t *testing.T) {
	proc := &fakeProcessor{result: resultWith(
		document.Formula{Page: 1, LaTeX: `x^{2}`, Type: latex.TypeAlgebraic, Score: 70},
	)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(Config{MaxUploadMB: 4, CacheTTL: time.Minute}, proc, nil, newMemCache(), logger)

	frame := encodePNG(t)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/procesar_fotograma", bytes.NewReader(frame))
		rec := httptest.NewRecorder()
		s.handleFrame(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, proc.calls)
}

type memCache struct {
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.entries[key] = value
}

func (c *memCache) Close() error { return nil }

func TestHandleImage_CacheServesRepeatedUploads(t *testing.T) {
	proc := &fakeProcessor{result: resultWith(
		document.Formula{Page: 1, LaTeX: `x^{2}`, Type: latex.TypeAlgebraic, Score: 70},
	)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(Config{MaxUploadMB: 4, CacheTTL: time.Minute}, proc, nil, newMemCache(), logger)

	content := encodePNG(t)
	for i := 0; i < 3; i++ {
		body, contentType := multipartBody(t, "imagen", "formula.png", content)
		req := httptest.NewRequest(http.MethodPost, "/procesar_imagen", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		s.handleImage(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SingleResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, `x^{2}`, resp.Formula)
	}
	assert.Equal(t, 1, proc.calls)
}

func TestNewServer_StreamSessionsFromDocumentProcessor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proc := document.NewProcessor(document.Config{}, nil, logger)
	s := NewServer(Config{MaxUploadMB: 4}, proc, nil, nil, logger)

	_, fallback := s.frames.(singlePageAdapter)
	assert.False(t, fallback, "a document processor must provide stream-local sessions")

	// Two websocket streams must not share detection state.
	assert.NotSame(t, s.newFrameSession(), s.newFrameSession())

	// End to end: a blank frame through the session yields no formula.
	req := httptest.NewRequest(http.MethodPost, "/procesar_fotograma", bytes.NewReader(encodePNG(t)))
	rec := httptest.NewRecorder()
	s.handleFrame(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServer_FallbackAdapterForPlainProcessors(t *testing.T) {
	s := testServer(t, &fakeProcessor{result: resultWith()})
	_, fallback := s.frames.(singlePageAdapter)
	assert.True(t, fallback)
}
