// Package httputil centralizes JSON response writing so handlers share one
// error envelope shape.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	derrors "opsdesk/pkg/domain-errors"
)

type validator interface {
	Validate() error
}

// Decode parses the JSON request body into T and, when T implements
// Validate() error, validates it. On failure it writes the bad_request
// envelope and returns false.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	if v, ok := any(req).(validator); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, derrors.New(derrors.CodeBadRequest, err.Error()))
			return req, false
		}
	}
	return req, true
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so infrastructure details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != derrors.CodeInternal {
		var de *derrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, derrors.ToHTTPStatus(code), body)
}
