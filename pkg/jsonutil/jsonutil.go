package jsonutil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// ErrTrailingData is returned by Decode when the body holds more than one value.
var ErrTrailingData = errors.New("trailing data after json value")

// JSON writes v as the response body with the given status code.
func JSON(w http.ResponseWriter, code int, v interface{}) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Decode reads exactly one JSON value of at most limit bytes from r's body.
// Unknown fields are rejected.
func Decode(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}
