package ayo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	fieldsPath   = "/list-fields"
	bookingsPath = "/list-bookings/"

	maxLoggedBody = 4096
)

// Config holds AYO API configuration
type Config struct {
	BaseURL      string        `envconfig:"AYO_BASE_URL"`
	APIToken     string        `envconfig:"AYO_API_TOKEN"`
	SecretKey    string        `envconfig:"AYO_SECRET_KEY"`
	VenueCode    string        `envconfig:"AYO_VENUE_CODE"`
	Timeout      time.Duration `envconfig:"AYO_TIMEOUT" default:"30s"`
	MaxRetries   int           `envconfig:"AYO_MAX_RETRIES" default:"2"`
	RetryBackoff time.Duration `envconfig:"AYO_RETRY_BACKOFF" default:"500ms"`
}

// Client calls the AYO partner API. It is safe for concurrent use.
type Client struct {
	HTTP *http.Client

	config Config
	logger *slog.Logger
	tracer trace.Tracer
}

// NewClient creates a new AYO API client
func NewClient(config Config, logger *slog.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		HTTP:   &http.Client{Timeout: config.Timeout},
		config: config,
		logger: logger.With("component", "ayo_client"),
		tracer: otel.Tracer("courtsync/ayo"),
	}
}

// GetFields lists the venue's fields, optionally narrowed by filters.
// The returned error is non-nil only when the request could not be signed.
func (c *Client) GetFields(ctx context.Context, filters map[string]string) (*FieldsResult, error) {
	res, err := c.get(ctx, "list-fields", fieldsPath, filters)
	if err != nil {
		return nil, err
	}

	out := &FieldsResult{Result: res}
	if !res.Success {
		return out, nil
	}

	items, err := extractList(res.Data, "data")
	if err != nil {
		c.logger.WarnContext(ctx, "Unexpected AYO fields payload", "error", err)
		out.Invalid = append(out.Invalid, err)
		return out, nil
	}

	for i, raw := range items {
		var f Field
		if err := decodeItem(raw, &f); err != nil {
			out.Invalid = append(out.Invalid, &apperrors.ValidationError{Field: fmt.Sprintf("data[%d]", i), Msg: err.Error()})
			continue
		}
		if f.ID == "" {
			out.Invalid = append(out.Invalid, &apperrors.ValidationError{Field: fmt.Sprintf("data[%d].id", i), Msg: "missing"})
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	if len(out.Invalid) > 0 {
		c.logger.WarnContext(ctx, "Discarded malformed AYO fields", "count", len(out.Invalid))
	}
	return out, nil
}

// GetActiveFields is GetFields keeping only fields with status ACTIVE and
// is_active 1.
func (c *Client) GetActiveFields(ctx context.Context) (*FieldsResult, error) {
	res, err := c.GetFields(ctx, nil)
	if err != nil || !res.Success {
		return res, err
	}

	active := res.Fields[:0]
	for _, f := range res.Fields {
		if f.Active() {
			active = append(active, f)
		}
	}
	res.Fields = active
	return res, nil
}

// GetBookings lists the venue's bookings, optionally narrowed by filters.
func (c *Client) GetBookings(ctx context.Context, filters map[string]string) (*BookingsResult, error) {
	path := bookingsPath + url.PathEscape(c.config.VenueCode)
	res, err := c.get(ctx, "list-bookings", path, filters)
	if err != nil {
		return nil, err
	}

	out := &BookingsResult{Result: res}
	if !res.Success {
		return out, nil
	}

	items, err := extractList(res.Data, "bookings", "data")
	if err != nil {
		c.logger.WarnContext(ctx, "Unexpected AYO bookings payload", "error", err)
		out.Invalid = append(out.Invalid, err)
		return out, nil
	}

	for i, raw := range items {
		var b Booking
		if err := decodeItem(raw, &b); err != nil {
			out.Invalid = append(out.Invalid, &apperrors.ValidationError{Field: fmt.Sprintf("bookings[%d]", i), Msg: err.Error()})
			continue
		}
		if b.ID == "" {
			out.Invalid = append(out.Invalid, &apperrors.ValidationError{Field: fmt.Sprintf("bookings[%d].id", i), Msg: "missing"})
			continue
		}
		out.Bookings = append(out.Bookings, b)
	}
	if len(out.Invalid) > 0 {
		c.logger.WarnContext(ctx, "Discarded malformed AYO bookings", "count", len(out.Invalid))
	}
	return out, nil
}

func (c *Client) GetBookingsByDate(ctx context.Context, date string) (*BookingsResult, error) {
	return c.GetBookings(ctx, map[string]string{"date": date})
}

func (c *Client) GetBookingsByDateRange(ctx context.Context, startDate, endDate string) (*BookingsResult, error) {
	return c.GetBookings(ctx, map[string]string{"start_date": startDate, "end_date": endDate})
}

func (c *Client) GetBookingsByStatus(ctx context.Context, status string) (*BookingsResult, error) {
	return c.GetBookings(ctx, map[string]string{"status": status})
}

func (c *Client) GetBookingByID(ctx context.Context, bookingID string) (*BookingsResult, error) {
	return c.GetBookings(ctx, map[string]string{"booking_id": bookingID})
}

func (c *Client) GetBookingsByField(ctx context.Context, fieldName string) (*BookingsResult, error) {
	return c.GetBookings(ctx, map[string]string{"field_name": fieldName})
}

// get signs {token} ∪ filters and issues the GET. Transport failures are
// retried with exponential backoff; any HTTP response is final.
func (c *Client) get(ctx context.Context, endpoint, path string, filters map[string]string) (*Result, error) {
	payload := make(map[string]any, len(filters)+1)
	for k, v := range filters {
		payload[k] = v
	}
	payload["token"] = c.config.APIToken

	signature, err := Sign(payload, c.config.SecretKey)
	if err != nil {
		c.logger.ErrorContext(ctx, "Cannot sign AYO request", "endpoint", endpoint, "error", err)
		return nil, err
	}

	query := url.Values{}
	for k, v := range payload {
		query.Set(k, fmt.Sprint(v))
	}
	query.Set(signatureKey, signature)
	fullURL := c.config.BaseURL + path + "?" + query.Encode()

	ctx, span := c.tracer.Start(ctx, "ayo."+endpoint, trace.WithAttributes(
		attribute.String("ayo.endpoint", endpoint),
	))
	defer span.End()

	c.logger.InfoContext(ctx, "AYO API request",
		"endpoint", endpoint,
		"url", c.config.BaseURL+path,
		"params", redact(payload),
	)

	start := time.Now()
	resp, body, err := c.doWithRetry(ctx, fullURL)
	elapsed := time.Since(start)

	if err != nil {
		metrics.ObserveRemoteRequest(endpoint, "transport_error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		c.logger.ErrorContext(ctx, "AYO API request failed", "endpoint", endpoint, "duration", elapsed, "error", err)
		return &Result{
			Success:    false,
			StatusCode: http.StatusInternalServerError,
			Error:      err.Error(),
			cause:      err,
		}, nil
	}

	metrics.ObserveRemoteRequest(endpoint, strconv.Itoa(resp.StatusCode), elapsed)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	c.logger.InfoContext(ctx, "AYO API response",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration", elapsed,
		"body", truncate(body),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
		c.logger.WarnContext(ctx, "AYO API returned error status", "endpoint", endpoint, "status", resp.StatusCode)
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Result{Success: false, StatusCode: resp.StatusCode, Error: msg}, nil
	}

	if !json.Valid(body) {
		span.SetStatus(codes.Error, "invalid json")
		return &Result{Success: false, StatusCode: resp.StatusCode, Error: "invalid JSON in response body"}, nil
	}

	return &Result{Success: true, StatusCode: resp.StatusCode, Data: json.RawMessage(body)}, nil
}

func (c *Client) doWithRetry(ctx context.Context, fullURL string) (*http.Response, []byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			c.logger.WarnContext(ctx, "Retrying AYO request", "attempt", attempt, "delay", delay, "error", lastErr)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, &apperrors.TransportError{URL: redactURL(fullURL), Message: ctx.Err().Error()}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, nil, &apperrors.TransportError{URL: redactURL(fullURL), Message: err.Error()}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return resp, body, nil
	}

	msg := "request failed"
	if lastErr != nil {
		// url.Error repeats the signed query string
		var ue *url.Error
		if errors.As(lastErr, &ue) {
			lastErr = ue.Err
		}
		msg = scrub(lastErr.Error(), c.config.APIToken)
	}
	return nil, nil, &apperrors.TransportError{URL: redactURL(fullURL), Message: msg}
}

// extractList finds the item array in a response envelope. keys are tried
// in order, including one level down inside an object-valued "data".
func extractList(body json.RawMessage, keys ...string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, &apperrors.ValidationError{Field: "body", Msg: err.Error()}
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, &apperrors.ValidationError{Field: "body", Msg: "expected a JSON object"}
	}

	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok || isNull(raw) {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			nested, err := extractList(raw, keys...)
			if err == nil {
				return nested, nil
			}
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &apperrors.ValidationError{Field: key, Msg: "expected an array"}
		}
		return items, nil
	}

	return nil, &apperrors.ValidationError{Field: strings.Join(keys, "|"), Msg: "missing"}
}

func decodeItem(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return fmt.Errorf("expected an object")
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func redact(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "token" || k == signatureKey {
			out[k] = "***"
			continue
		}
		out[k] = v
	}
	return out
}

func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func scrub(msg, token string) string {
	if token == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(token), "***")
	return strings.ReplaceAll(msg, token, "***")
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}

// Err converts a failed result into a typed error. Nil on success.
func (r *Result) Err() error {
	if r == nil || r.Success {
		return nil
	}
	if r.cause != nil {
		return r.cause
	}
	return &apperrors.RemoteError{StatusCode: r.StatusCode, Body: r.Error}
}
