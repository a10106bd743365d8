package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/sauldoescode/saul.app/internal/errors"
	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/upload"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

// ErrBadRequest marks a request body that could not be decoded.
var ErrBadRequest = errors.New("server: invalid request body")

// codes maps domain errors to registered error codes.
var codes = []struct {
	err  error
	code string
}{
	{writ.ErrNotFound, "E081"},
	{writ.ErrIncompleteWrit, "E082"},
	{writ.ErrMissingTags, "E082"},
	{writ.ErrAuthorIsNoUser, "E082"},
	{upload.ErrNotFound, "E084"},
	{auth.ErrUnauthorized, "E100"},
	{auth.ErrInvalidToken, "E100"},
	{auth.ErrForbidden, "E101"},
	{auth.ErrEmailRateLimit, "E102"},
	{auth.ErrInvalidUsernameOrEmail, "E103"},
	{auth.ErrIncompleteUser, "E103"},
	{auth.ErrUsernameTaken, "E104"},
	{ErrBadRequest, "E105"},
}

// appError converts err to a coded AppError. Unknown errors get no code
// and status 500.
func appError(err error) *apperrors.AppError {
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		return ae
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return apperrors.New(c.code).Wrap(err)
		}
	}
	return &apperrors.AppError{
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
		Wrapped: err,
	}
}

type errorBody struct {
	Code   string `json:"code,omitempty"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError answers with err as JSON. Internal errors are logged and
// their text is not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := appError(err)
	status := apperrors.HTTPStatus(ae)
	body := errorBody{Code: ae.Code, Error: ae.Message, Detail: ae.Detail}
	if ae.Code == "" {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", ae.Code, "error", err)
		if ae.Wrapped != nil {
			body.Error = ae.Wrapped.Error()
		}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
