package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/victoMR/testFlow/internal/cache"
	"github.com/victoMR/testFlow/internal/document"
	"github.com/victoMR/testFlow/internal/pdfx"
	"github.com/victoMR/testFlow/internal/render"
	"github.com/victoMR/testFlow/internal/textmath"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Status: "error", Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeNoFormula(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusNotFound, ErrorResponse{
		Status:  "no_formula",
		Message: "no se detectó ninguna fórmula",
	})
}

// maxUploadBytes is the request body limit derived from configuration.
func (s *Server) maxUploadBytes() int64 {
	return s.config.MaxUploadMB << 20
}

// persistFormulas records formulas that passed the persistence threshold.
// Storage failures never fail the request.
func (s *Server) persistFormulas(ctx context.Context, formulas []document.Formula) {
	for _, f := range formulas {
		if !f.Persist {
			continue
		}
		if _, err := s.store.Upsert(ctx, f.LaTeX, string(f.Type)); err != nil {
			s.logger.Warn("failed to persist formula", "formula", f.LaTeX, "error", err)
		}
	}
}

// bestFormula picks the highest scoring formula from a result.
func bestFormula(result *document.Result) (document.Formula, bool) {
	if result == nil || len(result.Formulas) == 0 {
		return document.Formula{}, false
	}
	best := result.Formulas[0]
	for _, f := range result.Formulas[1:] {
		if f.Score > best.Score {
			best = f
		}
	}
	return best, true
}

// singleResponse builds the response body for one recognized formula,
// including a rendered preview when rendering succeeds.
func (s *Server) singleResponse(f document.Formula) SingleResponse {
	resp := SingleResponse{
		Status: "ok",
		FormulaResult: FormulaResult{
			Formula:    f.LaTeX,
			Tipo:       string(f.Type),
			Confidence: f.Score,
		},
	}
	if preview, err := render.PreviewPNG(f.LaTeX); err == nil {
		resp.LatexImage = preview
	} else {
		s.logger.Debug("preview rendering failed", "error", err)
	}
	return resp
}

// recognizeImage runs a single image through the document pipeline.
func (s *Server) recognizeImage(ctx context.Context, img image.Image) (*document.Result, error) {
	pages := []document.Page{{Number: 1, Kind: document.PageImage, Image: img}}
	return s.processor.ProcessDocument(ctx, pages)
}

// handleFrame processes one raw camera frame posted as the request body.
// Identical frames are answered from the response cache.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes()))
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("frame", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "failed to read frame", err)
		return
	}
	if len(body) == 0 {
		recognitionRequestsTotal.WithLabelValues("frame", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "empty frame", nil)
		return
	}
	uploadSizeBytes.Observe(float64(len(body)))

	key := cache.Key(body)
	if cached, ok := s.cache.Get(r.Context(), key); ok {
		cacheHitsTotal.WithLabelValues("hit").Inc()
		recognitionRequestsTotal.WithLabelValues("frame", "ok").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}
	cacheHitsTotal.WithLabelValues("miss").Inc()

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("frame", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "invalid image data", err)
		return
	}

	result, err := s.frames.ProcessFrame(r.Context(), img)
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("frame", "error").Inc()
		s.writeError(w, http.StatusInternalServerError, "recognition failed", err)
		return
	}
	recognitionDuration.WithLabelValues("frame").Observe(time.Since(start).Seconds())

	best, ok := bestFormula(result)
	if !ok {
		recognitionRequestsTotal.WithLabelValues("frame", "ok").Inc()
		s.writeNoFormula(w)
		return
	}

	formulasExtracted.WithLabelValues(string(best.Type)).Inc()
	s.persistFormulas(r.Context(), result.Formulas)
	recognitionRequestsTotal.WithLabelValues("frame", "ok").Inc()

	resp := s.singleResponse(best)
	if encoded, err := json.Marshal(resp); err == nil {
		s.cache.Set(r.Context(), key, encoded, s.config.CacheTTL)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleImage processes an uploaded image from the "imagen" multipart field.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	file, header, err := r.FormFile("imagen")
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "missing 'imagen' field", err)
		return
	}
	defer file.Close()
	uploadSizeBytes.Observe(float64(header.Size))

	body, err := io.ReadAll(file)
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "failed to read upload", err)
		return
	}

	key := cache.Key(body)
	if cached, ok := s.cache.Get(r.Context(), key); ok {
		cacheHitsTotal.WithLabelValues("hit").Inc()
		recognitionRequestsTotal.WithLabelValues("image", "ok").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}
	cacheHitsTotal.WithLabelValues("miss").Inc()

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "invalid image data", err)
		return
	}

	result, err := s.recognizeImage(r.Context(), img)
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeError(w, http.StatusInternalServerError, "recognition failed", err)
		return
	}
	recognitionDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())

	best, ok := bestFormula(result)
	if !ok {
		recognitionRequestsTotal.WithLabelValues("image", "ok").Inc()
		s.writeNoFormula(w)
		return
	}

	formulasExtracted.WithLabelValues(string(best.Type)).Inc()
	s.persistFormulas(r.Context(), result.Formulas)
	recognitionRequestsTotal.WithLabelValues("image", "ok").Inc()

	resp := s.singleResponse(best)
	if encoded, err := json.Marshal(resp); err == nil {
		s.cache.Set(r.Context(), key, encoded, s.config.CacheTTL)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handlePDF processes an uploaded PDF from the "pdf" multipart field. Every
// page is examined; extracted formulas are returned in page order.
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	file, header, err := r.FormFile("pdf")
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "missing 'pdf' field", err)
		return
	}
	defer file.Close()
	uploadSizeBytes.Observe(float64(header.Size))

	tmp, err := os.CreateTemp("", "testflow-upload-*.pdf")
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, http.StatusInternalServerError, "failed to store upload", err)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		recognitionRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, http.StatusInternalServerError, "failed to store upload", err)
		return
	}
	tmp.Close()

	pageCount, err := pdfx.PageCount(tmp.Name())
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "invalid PDF", err)
		return
	}
	if pageCount < 1 || pageCount > s.config.MaxPages {
		recognitionRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, http.StatusBadRequest,
			"PDF page count out of range",
			&document.PageCountError{Pages: pageCount, Max: s.config.MaxPages})
		return
	}

	pages, err := pdfx.LoadPages(tmp.Name())
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, http.StatusUnprocessableEntity, "failed to extract PDF content", err)
		return
	}

	result, err := s.processor.ProcessDocument(r.Context(), pages)
	if err != nil {
		var pce *document.PageCountError
		if errors.As(err, &pce) {
			recognitionRequestsTotal.WithLabelValues("pdf", "error").Inc()
			s.writeError(w, http.StatusBadRequest, "PDF page count out of range", err)
			return
		}
		recognitionRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, http.StatusInternalServerError, "recognition failed", err)
		return
	}
	recognitionDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())

	s.persistFormulas(r.Context(), result.Formulas)

	resp := DocumentResponse{
		Status:   "ok",
		RunID:    result.RunID,
		Formulas: make([]FormulaResult, 0, len(result.Formulas)),
	}
	for _, f := range result.Formulas {
		formulasExtracted.WithLabelValues(string(f.Type)).Inc()
		resp.Formulas = append(resp.Formulas, FormulaResult{
			Formula:    f.LaTeX,
			Tipo:       string(f.Type),
			Confidence: f.Score,
			Page:       f.Page,
		})
	}
	recognitionRequestsTotal.WithLabelValues("pdf", "ok").Inc()
	s.writeJSON(w, http.StatusOK, resp)
}

// textRequest is the body of the plain text endpoint.
type textRequest struct {
	Texto string `json:"texto"`
}

// handleText converts plain mathematical text to LaTeX and validates it
// through the same pipeline as extracted formulas.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	start := time.Now()

	var req textRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUploadBytes())).Decode(&req); err != nil {
		recognitionRequestsTotal.WithLabelValues("text", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if strings.TrimSpace(req.Texto) == "" {
		recognitionRequestsTotal.WithLabelValues("text", "error").Inc()
		s.writeError(w, http.StatusBadRequest, "empty 'texto' field", nil)
		return
	}

	converted := textmath.Convert(req.Texto)
	if !strings.ContainsAny(converted, "$") && !strings.Contains(converted, `\[`) && !strings.Contains(converted, `\(`) {
		converted = "$" + converted + "$"
	}

	pages := []document.Page{{Number: 1, Kind: document.PageText, Text: converted}}
	result, err := s.processor.ProcessDocument(r.Context(), pages)
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("text", "error").Inc()
		s.writeError(w, http.StatusInternalServerError, "conversion failed", err)
		return
	}
	recognitionDuration.WithLabelValues("text").Observe(time.Since(start).Seconds())

	best, ok := bestFormula(result)
	if !ok {
		recognitionRequestsTotal.WithLabelValues("text", "ok").Inc()
		s.writeNoFormula(w)
		return
	}

	formulasExtracted.WithLabelValues(string(best.Type)).Inc()
	s.persistFormulas(r.Context(), result.Formulas)
	recognitionRequestsTotal.WithLabelValues("text", "ok").Inc()
	s.writeJSON(w, http.StatusOK, s.singleResponse(best))
}

// formulaRecord is one stored formula in the listing response.
type formulaRecord struct {
	Formula   string    `json:"formula"`
	Tipo      string    `json:"tipo"`
	Usos      int       `json:"usos"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// handleFormulas lists the most used stored formulas.
func (s *Server) handleFormulas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	records, err := s.store.Top(r.Context(), 20)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list formulas", err)
		return
	}

	out := make([]formulaRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, formulaRecord{
			Formula:   rec.Formula,
			Tipo:      rec.Type,
			Usos:      rec.Uses,
			FirstSeen: rec.FirstSeen,
			LastSeen:  rec.LastSeen,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "formulas": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
