// Package geo resolves a requester address to a coarse location. Two
// implementations are provided: a local GeoLite2 database and an HTTP
// lookup service. Callers bound both with a context deadline and fall
// back to Unknown when neither answers in time.
package geo

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Location is a coarse requester location.
type Location struct {
	Country string
	City    string
}

// Unknown is the fallback when a lookup times out or fails.
var Unknown = Location{Country: "Unknown", City: "Unknown"}

// Locator maps a requester IP address to a Location.
type Locator interface {
	Locate(ctx context.Context, addr string) (Location, error)
}

// MaxMind reads a local GeoLite2 City database.
type MaxMind struct {
	reader *geoip2.Reader
}

func OpenMaxMind(path string) (*MaxMind, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMind{reader: reader}, nil
}

func (m *MaxMind) Locate(ctx context.Context, addr string) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return Unknown, nil
	}

	record, err := m.reader.City(ip)
	if err != nil {
		return Unknown, err
	}

	loc := Unknown
	if name, ok := record.Country.Names["en"]; ok && name != "" {
		loc.Country = name
	}
	if name, ok := record.City.Names["en"]; ok && name != "" {
		loc.City = name
	}
	return loc, nil
}

func (m *MaxMind) Close() error {
	return m.reader.Close()
}

// WebAPI queries an ipwho.is-compatible endpoint over HTTP.
type WebAPI struct {
	client  *http.Client
	baseURL string
}

func NewWebAPI(baseURL string) *WebAPI {
	return &WebAPI{
		client:  http.DefaultClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (w *WebAPI) Locate(ctx context.Context, addr string) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/"+addr, nil)
	if err != nil {
		return Unknown, err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Unknown, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Unknown, nil
	}

	var out struct {
		Success bool   `json:"success"`
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Unknown, err
	}
	if !out.Success {
		return Unknown, nil
	}

	loc := Unknown
	if out.Country != "" {
		loc.Country = out.Country
	}
	if out.City != "" {
		loc.City = out.City
	}
	return loc, nil
}
