package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSON decodes a single JSON value from the request body into dest
func ParseJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON: trailing data after body")
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes 400 "Invalid request body" on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// ParsePathInt64 parses a positive integer id from the route variables
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	raw, ok := mux.Vars(r)[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	id, err := parseInt(key, raw)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid id for %s: %d", key, id)
	}
	return id, nil
}

// ParsePathStringOrError returns a route variable, writing a 400 when it is empty
func ParsePathStringOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val := mux.Vars(r)[key]
	if val == "" {
		WriteBadRequest(w, "missing path parameter: "+key)
		return "", false
	}
	return val, true
}

// ParseQueryString returns a query parameter or defaultVal when absent
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return defaultVal
}

// ParseFormInt64 parses an optional integer form field; empty yields nil
func ParseFormInt64(r *http.Request, key string) (*int64, error) {
	raw := r.FormValue(key)
	if raw == "" {
		return nil, nil
	}
	val, err := parseInt(key, raw)
	if err != nil {
		return nil, err
	}
	return &val, nil
}

func parseInt(key, raw string) (int64, error) {
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, raw)
	}
	return val, nil
}
