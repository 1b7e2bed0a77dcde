package server

import (
	"bytes"
	"image"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleFrameStream upgrades to WebSocket and recognizes a stream of camera
// frames. Each binary message is one encoded image; each reply is the same
// JSON body the frame endpoint produces.
func (s *Server) handleFrameStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	s.logger.Info("frame stream opened", "remote", conn.RemoteAddr())

	conn.SetReadLimit(s.maxUploadBytes())
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done)

	// One session per stream keeps the detection frame cache warm across
	// consecutive frames of the same camera.
	session := s.newFrameSession()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("frame stream read error", "error", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		reply := s.processStreamFrame(r, session, data)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("frame stream write error", "error", err)
			return
		}
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processStreamFrame recognizes one streamed frame and builds its reply.
func (s *Server) processStreamFrame(r *http.Request, session frameRecognizer, data []byte) any {
	start := time.Now()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("frame", "error").Inc()
		return ErrorResponse{Status: "error", Message: "invalid image data", Details: err.Error()}
	}

	result, err := session.ProcessFrame(r.Context(), img)
	if err != nil {
		recognitionRequestsTotal.WithLabelValues("frame", "error").Inc()
		return ErrorResponse{Status: "error", Message: "recognition failed", Details: err.Error()}
	}
	recognitionDuration.WithLabelValues("frame").Observe(time.Since(start).Seconds())
	recognitionRequestsTotal.WithLabelValues("frame", "ok").Inc()

	best, ok := bestFormula(result)
	if !ok {
		return ErrorResponse{Status: "no_formula", Message: "no se detectó ninguna fórmula"}
	}

	formulasExtracted.WithLabelValues(string(best.Type)).Inc()
	s.persistFormulas(r.Context(), result.Formulas)
	return s.singleResponse(best)
}
