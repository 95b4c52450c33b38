package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"courtsync/internal/config"
	"courtsync/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchClient хранит журнал запусков синхронизации
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// RunDocument is the indexed form of a sync run. Per-item outcomes are left
// out; errors are kept since they are what an operator searches for.
type RunDocument struct {
	RunID      string             `json:"run_id"`
	Kind       string             `json:"kind"`
	Trigger    string             `json:"trigger"`
	Params     map[string]any     `json:"params,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Success    bool               `json:"success"`
	DryRun     bool               `json:"dry_run"`
	Created    int                `json:"created"`
	Updated    int                `json:"updated"`
	Skipped    int                `json:"skipped"`
	Discarded  int                `json:"discarded"`
	ErrorCount int                `json:"error_count"`
	Error      string             `json:"error,omitempty"`
	Errors     []models.SyncError `json:"errors,omitempty"`
}

func NewRunDocument(run *models.SyncRun) RunDocument {
	doc := RunDocument{
		RunID:      run.ID,
		Kind:       run.Kind,
		Trigger:    run.Trigger,
		Params:     run.Params,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMS: run.Duration().Milliseconds(),
	}
	if s := run.Stats; s != nil {
		doc.Success = s.Success
		doc.DryRun = s.DryRun
		doc.Created = s.Created
		doc.Updated = s.Updated
		doc.Skipped = s.Skipped
		doc.Discarded = s.Discarded
		doc.ErrorCount = len(s.Errors)
		doc.Error = s.Error
		doc.Errors = s.Errors
	}
	return doc
}

// NewElasticsearchClient создает клиент и индекс, если его нет
func NewElasticsearchClient(ctx context.Context, cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
		Transport:     &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	if err := client.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

// ensureIndex создает индекс если он не существует
func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	keyword := map[string]interface{}{"type": "keyword"}
	integer := map[string]interface{}{"type": "integer"}
	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"run_id":      keyword,
				"kind":        keyword,
				"trigger":     keyword,
				"params":      map[string]interface{}{"type": "object", "enabled": false},
				"started_at":  map[string]interface{}{"type": "date"},
				"finished_at": map[string]interface{}{"type": "date"},
				"duration_ms": map[string]interface{}{"type": "long"},
				"success":     map[string]interface{}{"type": "boolean"},
				"dry_run":     map[string]interface{}{"type": "boolean"},
				"created":     integer,
				"updated":     integer,
				"skipped":     integer,
				"discarded":   integer,
				"error_count": integer,
				"error":       map[string]interface{}{"type": "text"},
				"errors": map[string]interface{}{
					"properties": map[string]interface{}{
						"id":    keyword,
						"error": map[string]interface{}{"type": "text"},
					},
				},
			},
		},
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(mappingJSON),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// IndexRun индексирует запуск синхронизации
func (c *ElasticsearchClient) IndexRun(ctx context.Context, run *models.SyncRun) error {
	body, err := json.Marshal(NewRunDocument(run))
	if err != nil {
		return fmt.Errorf("failed to marshal sync run: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: run.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index sync run: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}
	return nil
}

// RecentRuns возвращает последние запуски, новые первыми. Пустой kind - все виды.
func (c *ElasticsearchClient) RecentRuns(ctx context.Context, kind string, size int) ([]RunDocument, error) {
	if size <= 0 || size > 100 {
		size = 20
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if kind != "" {
		query = map[string]interface{}{
			"term": map[string]interface{}{"kind": kind},
		}
	}
	searchRequest := map[string]interface{}{
		"query": query,
		"size":  size,
		"sort":  []map[string]interface{}{{"started_at": map[string]interface{}{"order": "desc"}}},
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(searchJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source RunDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	runs := make([]RunDocument, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		runs[i] = hit.Source
	}
	return runs, nil
}

// HealthCheck проверяет состояние Elasticsearch
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}
	return nil
}

// Listener writes every finished run to the audit index.
type Listener struct {
	client *ElasticsearchClient
}

func NewListener(client *ElasticsearchClient) *Listener {
	return &Listener{client: client}
}

func (l *Listener) Name() string { return "elasticsearch" }

func (l *Listener) SyncFinished(ctx context.Context, run *models.SyncRun) error {
	return l.client.IndexRun(ctx, run)
}
