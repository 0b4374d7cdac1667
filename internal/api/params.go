package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// intRange describes an optional integer query parameter.
type intRange struct {
	name     string
	def      int
	min, max int
}

// queryInt reads an integer query parameter, applying the default when it
// is absent and rejecting values outside [min, max].
func queryInt(r *http.Request, p intRange) (int, error) {
	raw := r.URL.Query().Get(p.name)
	if raw == "" {
		return p.def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", p.name)
	}
	if v < p.min || v > p.max {
		return 0, fmt.Errorf("%s must be between %d and %d", p.name, p.min, p.max)
	}
	return v, nil
}

// queryBool reads an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil //nolint:nilnil // absent filter
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &v, nil
}

// page is the skip/limit pair shared by list endpoints.
type page struct {
	Skip  int
	Limit int
}

// skipParam is unbounded above; SQLite handles large offsets.
var skipParam = intRange{name: "skip", def: 0, min: 0, max: 1<<31 - 1}

// queryPage reads skip and limit, with limit between 1 and maxLimit.
func queryPage(r *http.Request, defLimit, maxLimit int) (page, error) {
	skip, err := queryInt(r, skipParam)
	if err != nil {
		return page{}, err
	}
	limit, err := queryInt(r, intRange{name: "limit", def: defLimit, min: 1, max: maxLimit})
	if err != nil {
		return page{}, err
	}
	return page{Skip: skip, Limit: limit}, nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// decodeJSON decodes the request body into v. Unknown fields are ignored.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
