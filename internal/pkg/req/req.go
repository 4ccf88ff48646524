/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates the logic for parsing JSON request bodies and typed query string
parameters, and integrates error handling to ensure data format correctness before
business logic runs.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"geochat/internal/pkg/errs"
)

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// QueryFloat parses a required float64 query parameter.
func QueryFloat(r *http.Request, name string) (float64, *errs.CustomError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}

	return value, nil
}

// QueryFloatDefault parses an optional float64 query parameter, returning def when absent.
func QueryFloatDefault(r *http.Request, name string, def float64) (float64, *errs.CustomError) {
	if r.URL.Query().Get(name) == "" {
		return def, nil
	}
	return QueryFloat(r, name)
}
