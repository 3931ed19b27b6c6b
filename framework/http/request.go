package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Response formats a client can ask for.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Request wraps *http.Request with Laravel-style helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Query returns a URL query value, falling back to the first fallback.
//
//	// Laravel: $request->query('scope', 'default')
func (req *Request) Query(key string, fallback ...string) string {
	if v := req.raw.URL.Query().Get(key); v != "" {
		return v
	}
	return first(fallback, "")
}

// Has reports whether the query string carries key, even empty.
func (req *Request) Has(key string) bool {
	return req.raw.URL.Query().Has(key)
}

// RouteParam returns a chi URL parameter ({name} in the pattern).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// Format picks the response format: ?format= wins, then the Accept header,
// then def.
func (req *Request) Format(def string) string {
	switch strings.ToLower(req.Query("format")) {
	case FormatJSON:
		return FormatJSON
	case FormatYAML, "yml":
		return FormatYAML
	}

	accept := req.Header("Accept")
	switch {
	case strings.Contains(accept, "yaml"):
		return FormatYAML
	case strings.Contains(accept, "application/json"):
		return FormatJSON
	}
	return def
}
