// Package booking is the HTTP client for the remote booking API, the
// authoritative appointment source behind the dashboard.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brightpath-health/practice-dashboard/internal/schedule"
)

// Client fetches a provider's appointments and weekly availability.
type Client struct {
	baseURL    string
	token      string
	providerID string
	httpClient *http.Client
}

// Config configures the booking API client.
type Config struct {
	BaseURL    string
	Token      string
	ProviderID string
	HTTPClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("booking: base url is required")
	}
	if strings.TrimSpace(cfg.ProviderID) == "" {
		return nil, errors.New("booking: provider id is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		providerID: strings.TrimSpace(cfg.ProviderID),
		httpClient: httpClient,
	}, nil
}

// FetchAppointments returns the provider's raw appointment records in
// [from, to). Records come back unnormalized; the schedule aggregator owns
// shape tolerance. Servers respond with either a bare array or an
// {"appointments": [...]} envelope; both are accepted.
func (c *Client) FetchAppointments(ctx context.Context, from, to time.Time) ([]schedule.RawAppointment, error) {
	endpoint := fmt.Sprintf("%s/providers/%s/appointments", c.baseURL, url.PathEscape(c.providerID))
	query := url.Values{}
	if !from.IsZero() {
		query.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		query.Set("to", to.Format("2006-01-02"))
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body json.RawMessage
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, fmt.Errorf("booking: fetch appointments: %w", err)
	}
	raws, err := decodeAppointments(body)
	if err != nil {
		return nil, fmt.Errorf("booking: fetch appointments: %w", err)
	}
	return raws, nil
}

func decodeAppointments(data []byte) ([]schedule.RawAppointment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []schedule.RawAppointment
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("decode appointments: %w", err)
		}
		return raws, nil
	}
	var envelope struct {
		Appointments []schedule.RawAppointment `json:"appointments"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return envelope.Appointments, nil
}

// FetchAvailability returns the provider's weekly availability keyed by
// weekday index.
func (c *Client) FetchAvailability(ctx context.Context) (map[string][]string, error) {
	endpoint := fmt.Sprintf("%s/providers/%s/availability", c.baseURL, url.PathEscape(c.providerID))

	var raw map[string][]string
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("booking: fetch availability: %w", err)
	}
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
