/*
Package req binds and validates HTTP request input: strict JSON bodies and
limit/offset pagination parameters.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"roomchat/internal/pkg/errs"
)

const (
	// MaxBodyBytes caps every JSON request body.
	MaxBodyBytes int64 = 64 << 10

	// DefaultLimit is used when a list request omits limit.
	DefaultLimit = 20

	// MaxLimit is the largest page a list request may ask for.
	MaxLimit = 100
)

// BindJSON decodes the request body into dst. Unknown fields, trailing data
// and non-JSON content types are rejected.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// Page is a parsed limit/offset pair.
type Page struct {
	Limit  int
	Offset int
}

// BindPage reads limit and offset from the query string. Missing values take
// defaults; limit is clamped to MaxLimit; negative or non-numeric values are rejected.
func BindPage(r *http.Request) (Page, *errs.CustomError) {
	page := Page{Limit: DefaultLimit}
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Page{}, errs.NewError(errs.ErrInvalidParams)
		}
		page.Limit = min(limit, MaxLimit)
	}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Page{}, errs.NewError(errs.ErrInvalidParams)
		}
		page.Offset = offset
	}

	return page, nil
}

// QueryInt64 parses an optional integer query parameter, returning def when absent.
func QueryInt64(r *http.Request, name string, def int64) (int64, *errs.CustomError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}
	return v, nil
}
