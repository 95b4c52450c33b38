package validation

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"courtsync/internal/models"
)

// APIValidator - проверка развернутого API синхронизации.
// Ничего не пишет: синхронизация кортов вызывается только в режиме preview.
type APIValidator struct {
	baseURL    string
	adminToken string
	client     *http.Client
	logger     *slog.Logger
}

func NewAPIValidator(baseURL, adminToken string, logger *slog.Logger) *APIValidator {
	return &APIValidator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		client:     &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}
}

// ValidateAll проверяет все endpoints, останавливаясь на первой ошибке
func (v *APIValidator) ValidateAll() error {
	v.logger.Info("Начинаю валидацию API...", "base_url", v.baseURL)

	checks := []struct {
		name string
		fn   func() error
	}{
		{"health", v.validateHealth},
		{"metrics", v.validateMetrics},
		{"court lookups", v.validateCourtLookups},
		{"court preview", v.validatePreview},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("%s validation failed: %w", check.name, err)
		}
		v.logger.Info("Endpoint group is valid", "group", check.name)
	}

	v.logger.Info("Все endpoints прошли валидацию успешно")
	return nil
}

func (v *APIValidator) validateHealth() error {
	resp, err := v.makeRequest(http.MethodGet, "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /health: expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("GET /health: failed to decode response: %w", err)
	}
	if body.Status != "healthy" && body.Status != "degraded" {
		return fmt.Errorf("GET /health: unexpected status %q", body.Status)
	}
	return nil
}

func (v *APIValidator) validateMetrics() error {
	resp, err := v.makeRequest(http.MethodGet, "/metrics")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /metrics: expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), "courtsync_") && !strings.Contains(string(body), "go_goroutines") {
		return fmt.Errorf("GET /metrics: no known metric families")
	}
	return nil
}

func (v *APIValidator) validateCourtLookups() error {
	expect := map[string]int{
		"/api/courts/not-a-number/ayo":               http.StatusBadRequest,
		"/api/courts/by-ayo-field/__no_such_field__": http.StatusNotFound,
	}
	for path, want := range expect {
		resp, err := v.makeRequest(http.MethodGet, path)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			return fmt.Errorf("GET %s: expected %d, got %d", path, want, resp.StatusCode)
		}
	}
	return nil
}

// validatePreview accepts 409 and 502: a running sync or an AYO outage are
// not API faults, but the stats body must still be there.
func (v *APIValidator) validatePreview() error {
	const path = "/api/sync/courts/preview"
	resp, err := v.makeRequest(http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusConflict, http.StatusBadGateway:
	default:
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	var stats models.SyncStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("GET %s: failed to decode stats: %w", path, err)
	}
	if resp.StatusCode == http.StatusOK && !stats.DryRun {
		return fmt.Errorf("GET %s: preview must report dry_run", path)
	}
	if stats.Errors == nil || stats.Outcomes == nil {
		return fmt.Errorf("GET %s: errors and outcomes must be arrays", path)
	}
	return nil
}

func (v *APIValidator) makeRequest(method, path string) (*http.Response, error) {
	req, err := http.NewRequest(method, v.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if v.adminToken != "" {
		req.Header.Set("X-Admin-Token", v.adminToken)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
