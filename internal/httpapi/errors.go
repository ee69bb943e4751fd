package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/filebox/internal/gateway"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var kindStatus = map[gateway.Kind]int{
	gateway.KindValidation:     http.StatusBadRequest,
	gateway.KindAuthentication: http.StatusUnauthorized,
	gateway.KindAuthorization:  http.StatusForbidden,
	gateway.KindNotFound:       http.StatusNotFound,
	gateway.KindInvalidState:   http.StatusConflict,
	gateway.KindConflict:       http.StatusConflict,
	gateway.KindInternal:       http.StatusInternalServerError,
}

// writeError maps a gateway error onto an HTTP response. Internal detail
// never leaves the process; callers see the stable code and safe message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := gateway.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := "internal error"
	var ge *gateway.Error
	if errors.As(err, &ge) && kind != gateway.KindInternal {
		message = ge.Message
	}
	if kind == gateway.KindInternal {
		s.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}

	writeErrorCode(w, status, string(kind), message)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
