package restaurantapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/pkg/logging"
)

var tracer = otel.Tracer("tablebook.internal.restaurantapi")

const (
	defaultBaseURL = "http://127.0.0.1:8000"
	defaultTimeout = 10 * time.Second

	// IdempotencyHeader carries the per-submission key on reservation creates.
	IdempotencyHeader = "Idempotency-Key"
)

// API is the reservation service consumed by the booking form.
type API interface {
	GetRestaurant(ctx context.Context) (*Restaurant, error)
	GetTimeSlots(ctx context.Context) ([]TimeSlot, error)
	GetAvailability(ctx context.Context, date reservation.Date) (*Availability, error)
	GetSpecialDates(ctx context.Context) ([]reservation.SpecialDate, error)
	CreateReservation(ctx context.Context, payload reservation.Payload, idempotencyKey string) (*CreateResult, error)
}

// LatencyObserver receives one observation per upstream call.
type LatencyObserver interface {
	ObserveUpstream(endpoint, status string, seconds float64)
}

// Client is the HTTP implementation of API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	observer   LatencyObserver
}

var _ API = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver records request latency, typically into prometheus.
func WithObserver(o LatencyObserver) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs a reservation API client. A zero timeout uses 10s.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRestaurant fetches the restaurant profile.
func (c *Client) GetRestaurant(ctx context.Context) (*Restaurant, error) {
	var out Restaurant
	if err := c.doJSON(ctx, "restaurant", http.MethodGet, "/api/restaurant/", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("restaurantapi: get restaurant: %w", err)
	}
	return &out, nil
}

// GetTimeSlots lists every defined time slot. Accepts a bare list or {timeslots:[...]}.
func (c *Client) GetTimeSlots(ctx context.Context) ([]TimeSlot, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "timeslots", http.MethodGet, "/api/timeslots/", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("restaurantapi: get timeslots: %w", err)
	}
	var slots []TimeSlot
	if err := json.Unmarshal(raw, &slots); err == nil {
		return slots, nil
	}
	var wrapped struct {
		TimeSlots []TimeSlot `json:"timeslots"`
		Results   []TimeSlot `json:"results"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("restaurantapi: decode timeslots: %w", err)
	}
	if len(wrapped.TimeSlots) > 0 {
		return wrapped.TimeSlots, nil
	}
	return wrapped.Results, nil
}

// GetAvailability fetches per-slot availability for one date.
func (c *Client) GetAvailability(ctx context.Context, date reservation.Date) (*Availability, error) {
	q := url.Values{}
	q.Set("date", date.String())

	var out Availability
	if err := c.doJSON(ctx, "availability", http.MethodGet, "/api/availability/?"+q.Encode(), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("restaurantapi: get availability %s: %w", date, err)
	}
	return &out, nil
}

// GetSpecialDates lists the schedule overrides. Rows with unparseable dates are skipped.
func (c *Client) GetSpecialDates(ctx context.Context) ([]reservation.SpecialDate, error) {
	var wrapped struct {
		SpecialDates []specialDateWire `json:"special_dates"`
	}
	if err := c.doJSON(ctx, "special_dates", http.MethodGet, "/api/special-dates/", nil, nil, &wrapped); err != nil {
		return nil, fmt.Errorf("restaurantapi: get special dates: %w", err)
	}
	out := make([]reservation.SpecialDate, 0, len(wrapped.SpecialDates))
	for _, w := range wrapped.SpecialDates {
		d, err := reservation.ParseDate(w.Date)
		if err != nil {
			c.logger.Warn("skipping special date with invalid date", "date", w.Date, "error", err)
			continue
		}
		out = append(out, reservation.SpecialDate{Date: d, IsOpen: w.IsOpen, Reason: w.Reason})
	}
	return out, nil
}

// CreateReservation submits a reservation. Non-2xx responses return *APIError.
func (c *Client) CreateReservation(ctx context.Context, payload reservation.Payload, idempotencyKey string) (*CreateResult, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[IdempotencyHeader] = idempotencyKey
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, "create_reservation", http.MethodPost, "/api/reservations/create/", headers, payload, &raw); err != nil {
		return nil, fmt.Errorf("restaurantapi: create reservation: %w", err)
	}
	if len(raw) == 0 {
		return &CreateResult{}, nil
	}
	res, err := decodeCreateResult(raw)
	if err != nil {
		return nil, fmt.Errorf("restaurantapi: decode reservation: %w", err)
	}
	return res, nil
}

func (c *Client) doJSON(ctx context.Context, endpoint, method, path string, headers map[string]string, body, out any) (err error) {
	ctx, span := tracer.Start(ctx, "restaurantapi."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)

	start := time.Now()
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(endpoint, statusLabel(status), time.Since(start).Seconds())
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("restaurant API non-2xx response", "status", resp.StatusCode, "path", path, "body", truncate(string(respBody), 300))
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
