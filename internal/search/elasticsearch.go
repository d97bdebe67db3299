package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"minischeduler/internal/config"
	"minischeduler/internal/models"
)

const maxHits = 100

// ElasticsearchClient is the full-text index over event titles, descriptions
// and organizer names
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// eventDocument is the indexed form of an event
type eventDocument struct {
	ID            int64     `json:"id"`
	OrganizerID   int64     `json:"organizer_id"`
	OrganizerName string    `json:"organizer_name,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	ScheduleStart time.Time `json:"schedule_start"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewElasticsearchClient connects and creates the index when missing
func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}
	return client, nil
}

func newClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{client: es, config: cfg}, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{c.config.Index}}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mapping := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":           map[string]any{"type": "long"},
				"organizer_id": map[string]any{"type": "long"},
				"title": map[string]any{
					"type": "text",
					"fields": map[string]any{
						"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
					},
				},
				"description":    map[string]any{"type": "text"},
				"organizer_name": map[string]any{"type": "text"},
				"schedule_start": map[string]any{"type": "date"},
				"created_at":     map[string]any{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createRes, err := esapi.IndicesCreateRequest{Index: c.config.Index, Body: bytes.NewReader(body)}.Do(ctx, c.client)
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

// IndexEvent upserts the event document
func (c *ElasticsearchClient) IndexEvent(ctx context.Context, event *models.Event, organizerName string) error {
	doc := eventDocument{
		ID:            event.ID,
		OrganizerID:   event.OrganizerID,
		OrganizerName: organizerName,
		Title:         event.Title,
		ScheduleStart: event.ScheduleStart,
		CreatedAt:     event.CreatedAt,
	}
	if event.Description != nil {
		doc.Description = *event.Description
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	res, err := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(event.ID, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}
	return nil
}

// DeleteEvent drops the event document. A document that was never indexed
// is not an error.
func (c *ElasticsearchClient) DeleteEvent(ctx context.Context, id int64) error {
	res, err := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "wait_for",
	}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete error: %s", res.String())
	}
	return nil
}

// SearchEvents returns ids of matching events, most relevant first
func (c *ElasticsearchClient) SearchEvents(ctx context.Context, keyword string) ([]int64, error) {
	body, err := json.Marshal(buildSearchQuery(keyword))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, c.client)
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
				Source eventDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]int64, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		ids[i] = hit.Source.ID
	}
	return ids, nil
}

func buildSearchQuery(keyword string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     keyword,
				"fields":    []string{"title^2", "organizer_name", "description"},
				"fuzziness": "AUTO",
			},
		},
		"sort": []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
			{"id": map[string]any{"order": "asc"}},
		},
		"_source": []string{"id"},
		"size":    maxHits,
	}
}
