package api

import (
	"net/http"

	"github.com/soaringjerry/awap/internal/middleware"
	"github.com/soaringjerry/awap/internal/roles"
	"github.com/soaringjerry/awap/internal/services"
)

// POST /api/auth/signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.auth.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User created successfully",
		"user":    map[string]any{"id": u.ID, "name": u.Name, "email": u.Email},
	})
}

// POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	c, _ := middleware.ClaimsFromContext(r.Context())
	def, _ := roles.Lookup(c.Role)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":         c.UID,
			"name":       c.Name,
			"email":      c.Email,
			"role":       c.Role,
			"department": c.Department,
		},
		"role":         def,
		"permissions":  roles.Permissions(c.Role),
		"routes":       roles.Routes(c.Role),
		"defaultRoute": roles.DefaultRoute(c.Role),
	})
}

// GET /api/roles
func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles.Table()})
}
