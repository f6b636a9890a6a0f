package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/roles"
)

type authCtxKey int

const authKey authCtxKey = 7

type Claims struct {
	UID        int64  `json:"uid"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens with one shared secret.
type Tokens struct {
	secret []byte
}

func NewTokens(secret []byte) *Tokens {
	return &Tokens{secret: secret}
}

// Sign issues a token for u. It satisfies services.TokenSigner.
func (t *Tokens) Sign(u models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:        u.ID,
		Role:       u.Role,
		Email:      u.Email,
		Name:       u.Name,
		Department: u.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *Tokens) Parse(tok string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// WithAuth attaches claims to the context when a valid bearer token is
// present. Browsers cannot set headers on websocket upgrades, so a token
// query parameter is accepted there as well.
func (t *Tokens) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := ""
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tok = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		} else if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			tok = r.URL.Query().Get("token")
		}
		if tok != "" {
			if c, err := t.Parse(tok); err == nil {
				next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			deny(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only the listed roles. Everyone else, signed in or not,
// gets 401.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFromContext(r.Context())
			if ok {
				for _, role := range allowed {
					if c.Role == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			deny(w, http.StatusUnauthorized, "Unauthorized")
		})
	}
}

// RequirePermission answers 401 without a session and 403 when the role
// lacks permission.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !roles.Has(c.Role, permission) {
				deny(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, authKey, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(authKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns the signed-in user id, or 0.
func UserIDFromContext(ctx context.Context) int64 {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.UID
	}
	return 0
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
