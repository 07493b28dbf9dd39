package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteProblem writes an RFC7807 style error body.
func WriteProblem(w http.ResponseWriter, code int, typ, detail string) {
	w.Header().Set("Content-Type", "application/problem+json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   typ,                   // machine readable code
		"title":  http.StatusText(code), // human readable title
		"status": code,
		"detail": detail,
	})
}

// AtoiDefault parses s, falling back to d when s is empty or invalid.
func AtoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
