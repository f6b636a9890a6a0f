package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/soaringjerry/awap/internal/middleware"
	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/progress"
	"github.com/soaringjerry/awap/internal/services"
	"github.com/soaringjerry/awap/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// multipartOverhead leaves room for the form framing around the file.
	multipartOverhead = 1 << 20
)

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	recs, err := s.imports.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []models.ImportRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": recs})
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.imports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"import": rec})
}

// POST /api/admin/imports/upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, services.NewTooLargeError("File too large"))
			return
		}
		writeError(w, r, services.WithDetails(services.NewInvalidError("Invalid upload"), err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, services.NewInvalidError("No file uploaded"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.imports.Submit(r.Context(), middleware.UserIDFromContext(r.Context()), header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"import": rec})
}

func (s *Server) upgrader() websocket.Upgrader {
	origins := s.cfg.HTTP.CORSOrigins
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// GET /api/admin/imports/{id}/progress streams progress events until the
// import reaches a terminal state.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	events, cancel := s.hub.Subscribe(id)
	defer cancel()

	rec, err := s.imports.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		utils.Warn("websocket upgrade failed", utils.String("import_id", id), utils.ErrorField(err))
		return
	}
	defer conn.Close()

	if rec.Done() {
		_ = writeEvent(conn, services.ProgressEvent(rec, rec.TotalRows, rec.ErrorMessage))
		closeNormal(conn)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The reader only services control frames and notices the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					utils.Debug("websocket read ended", utils.String("import_id", id), utils.ErrorField(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				closeNormal(conn)
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				utils.Debug("websocket write failed", utils.String("import_id", id), utils.ErrorField(err))
				return
			}
			if ev.Done {
				closeNormal(conn)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev progress.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

func closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
