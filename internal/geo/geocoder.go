package geo

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrTimeout reports that the reverse-geocode service did not answer in time.
var ErrTimeout = errors.New("geocode: request timed out")

// Reverser resolves a coordinate pair to a raw address payload of the form
// {"display_name": ..., "address": {...}}. A nil payload with a nil error
// means the service had no result for the position.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error)
}

// ReverserFunc adapts a function to Reverser.
type ReverserFunc func(ctx context.Context, lat, lon float64) (json.RawMessage, error)

func (f ReverserFunc) Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	return f(ctx, lat, lon)
}
