package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Nominatim is a Reverser backed by a Nominatim-compatible /reverse endpoint.
type Nominatim struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
	log       *slog.Logger
}

// NewNominatim returns a client with the given per-request timeout.
func NewNominatim(endpoint, userAgent string, timeout time.Duration, logger *slog.Logger) *Nominatim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Nominatim{
		Endpoint:  endpoint,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
		log:       logger,
	}
}

// Reverse issues a single reverse-geocode request.
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	u, err := url.Parse(n.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return nil, fmt.Errorf("%w: status %d", ErrTimeout, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.New("reverse geocode: response is not valid JSON")
	}
	res := gjson.ParseBytes(body)
	if msg := res.Get("error"); msg.Exists() {
		n.log.Debug("no reverse geocode result", "lat", lat, "lon", lon, "error", msg.String())
		return nil, nil
	}
	if !res.IsObject() || !res.Get("display_name").Exists() {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
