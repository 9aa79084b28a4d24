// Package httputil holds the JSON response helpers shared by all handlers.
package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "agrimarket/pkg/domainerrors"
)

const internalErrorBody = `{"error":"internal_error"}` + "\n"

// WriteJSON encodes v with the given status. A value that cannot be encoded
// is logged and answered with 500 instead of an empty body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("encode response", "error", err, "status", status)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(internalErrorBody))
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("write response", "error", err)
	}
}

// WriteError translates a domain error into a JSON error envelope. Internal
// errors never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWith(w, err, nil)
}

// WriteErrorWith is WriteError with extra string fields merged into the body.
func WriteErrorWith(w http.ResponseWriter, err error, extra map[string]string) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}

	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) && de.Message != "" {
		body["error_description"] = de.Message
	}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, dErrors.HTTPStatus(code), body)
}
