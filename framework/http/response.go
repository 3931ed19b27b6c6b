package http

import (
	"encoding/json"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with Laravel-style helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// ── YAML ─────────────────────────────────────────────────────────────────────

// YAML sends a YAML document, or 500 if v cannot be encoded.
func (res *Response) YAML(status int, v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		res.ServerError(err.Error())
		return
	}
	res.RawYAML(status, data)
}

// RawYAML sends an already encoded YAML document.
func (res *Response) RawYAML(status int, data []byte) {
	res.w.Header().Set("Content-Type", "application/yaml")
	res.w.WriteHeader(status)
	_, _ = res.w.Write(data)
}

// ── Errors ───────────────────────────────────────────────────────────────────

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// ErrorWith sends a JSON error response with extra fields next to the message.
func (res *Response) ErrorWith(status int, message string, fields map[string]any) {
	body := envelope{"message": message}
	for k, v := range fields {
		body[k] = v
	}
	res.JSON(status, body)
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	msg := first(message, "Not found.")
	res.JSON(http.StatusNotFound, envelope{"message": msg})
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	msg := first(message, "Server Error.")
	res.JSON(http.StatusInternalServerError, envelope{"message": msg})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
