package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/soaringjerry/awap/internal/services"
	"github.com/soaringjerry/awap/internal/utils"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMsg(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

// writeError maps service errors onto HTTP statuses. Anything that is not a
// ServiceError is logged and reported as a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeErrorMsg(w, statusFor(se.Code), se.Message, se.Details)
		return
	}
	utils.Error("request failed",
		utils.String("method", r.Method),
		utils.String("path", r.URL.Path),
		utils.String("request_id", chimw.GetReqID(r.Context())),
		utils.ErrorField(err),
	)
	writeErrorMsg(w, http.StatusInternalServerError, "Internal server error", err.Error())
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid, services.ErrorTooLarge, services.ErrorConflict:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return services.WithDetails(services.NewInvalidError("Invalid request body"), err.Error())
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewInvalidError("Invalid user id")
	}
	return id, nil
}

func writeDownload(w http.ResponseWriter, res *services.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}
