package api

import (
	"encoding/json"
	"net/http"

	"github.com/soaringjerry/awap/internal/middleware"
	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/services"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in services.CreateUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.users.Create(r.Context(), middleware.UserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User created successfully", "user": u})
}

func (s *Server) handleCountUsers(w http.ResponseWriter, r *http.Request) {
	n, err := s.users.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

func (s *Server) handleExportUsers(w http.ResponseWriter, r *http.Request) {
	res, err := s.users.Export(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDownload(w, res)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.UpdateUserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.users.Update(r.Context(), middleware.UserIDFromContext(r.Context()), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User updated successfully", "user": u})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.users.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted successfully"})
}

func (s *Server) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.users.ToggleStatus(r.Context(), middleware.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	verb := "enabled"
	if u.Status == models.StatusDisabled {
		verb = "disabled"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User " + verb + " successfully",
		"status":  u.Status,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Settings map[string]json.RawMessage `json:"settings"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := s.settings.Update(r.Context(), middleware.UserIDFromContext(r.Context()), in.Settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Settings updated successfully",
		"settings": settings,
	})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.audit.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	res, err := s.audit.Export(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDownload(w, res)
}

func (s *Server) handleDataStats(w http.ResponseWriter, r *http.Request) {
	tables, err := s.data.Tables(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}
