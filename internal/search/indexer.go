// Package search indexes the distribution audit trail into Elasticsearch and
// serves free-text queries over it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/models"
)

// DefaultIndex is the index holding distribution history documents.
const DefaultIndex = "distribution_history"

// Indexer writes and queries history documents.
type Indexer struct {
	client *es.Client
	index  string
	logger logger.Logger
}

// NewIndexer creates a history indexer
func NewIndexer(client *es.Client, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = DefaultIndex
	}
	return &Indexer{
		client: client,
		index:  index,
		logger: log,
	}
}

// historyDocument is the indexed shape. Flat fields keep the mapping simple.
type historyDocument struct {
	JobID       string    `json:"job_id"`
	ItemID      string    `json:"item_id"`
	ItemTitle   string    `json:"item_title"`
	ItemType    string    `json:"item_type"`
	Genre       string    `json:"genre"`
	Tags        []string  `json:"tags"`
	PlatformKey string    `json:"platform_key"`
	Status      string    `json:"status"`
	ExternalRef string    `json:"external_ref,omitempty"`
	ErrorClass  string    `json:"error_class,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// RecordResult indexes one history entry. Implements the orchestrator's
// history sink so indexing happens alongside the Postgres write.
func (ix *Indexer) RecordResult(ctx context.Context, entry *models.DistributionHistory) error {
	doc := historyDocument{
		JobID:       entry.JobID.String(),
		ItemID:      entry.ItemID.String(),
		ItemTitle:   entry.ItemTitle,
		ItemType:    entry.ItemType,
		Genre:       entry.Genre,
		Tags:        entry.Tags,
		PlatformKey: entry.PlatformKey,
		Status:      entry.Status,
		ExternalRef: entry.ExternalRef,
		ErrorClass:  entry.ErrorClass,
		RecordedAt:  entry.RecordedAt,
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal history document: %w", err)
	}

	res, err := ix.client.Index(
		ix.index,
		bytes.NewReader(docBytes),
		ix.client.Index.WithContext(ctx),
		ix.client.Index.WithDocumentID(entry.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to index history document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing history document: %s", res.String())
	}

	return nil
}

// Query carries the search parameters for the history index.
type Query struct {
	Text        string     `json:"q" form:"q"`
	PlatformKey string     `json:"platform_key" form:"platform_key"`
	Status      string     `json:"status" form:"status"`
	Since       *time.Time `json:"since" form:"since" time_format:"2006-01-02"`
	Size        int        `json:"size" form:"size"`
}

// Hit is one matched history entry with its relevance score.
type Hit struct {
	ID     string                     `json:"id"`
	Score  float64                    `json:"score"`
	Source models.DistributionHistory `json:"source"`
}

// Search runs a free-text query over indexed history. Text matches item
// title, genre, and tags; the remaining parameters are exact filters.
func (ix *Indexer) Search(ctx context.Context, q Query) ([]Hit, error) {
	size := q.Size
	if size <= 0 {
		size = 25
	}
	const maxSize = 200
	if size > maxSize {
		size = maxSize
	}

	must := []map[string]any{}
	if q.Text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q.Text,
				"fields": []string{"item_title^2", "genre", "tags"},
			},
		})
	}

	filter := []map[string]any{}
	if q.PlatformKey != "" {
		filter = append(filter, map[string]any{
			"term": map[string]any{"platform_key": q.PlatformKey},
		})
	}
	if q.Status != "" {
		filter = append(filter, map[string]any{
			"term": map[string]any{"status": q.Status},
		})
	}
	if q.Since != nil {
		filter = append(filter, map[string]any{
			"range": map[string]any{
				"recorded_at": map[string]any{"gte": q.Since.Format(time.RFC3339)},
			},
		})
	}

	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": filter,
			},
		},
		"size": size,
		"sort": []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
			{"recorded_at": map[string]any{"order": "desc"}},
		},
	}

	queryBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(ix.index),
		ix.client.Search.WithBody(bytes.NewReader(queryBytes)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search history: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching history: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source historyDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("error decoding search response: %w", err)
	}

	hits := make([]Hit, 0, len(searchResult.Hits.Hits))
	for _, h := range searchResult.Hits.Hits {
		entry, convErr := h.Source.toModel(h.ID)
		if convErr != nil {
			ix.logger.Warn("skipping malformed history document",
				logger.String("doc_id", h.ID),
				logger.Error(convErr),
			)
			continue
		}
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Source: entry})
	}

	return hits, nil
}

func (d historyDocument) toModel(docID string) (models.DistributionHistory, error) {
	entry := models.DistributionHistory{
		ItemTitle:   d.ItemTitle,
		ItemType:    d.ItemType,
		Genre:       d.Genre,
		Tags:        pq.StringArray(d.Tags),
		PlatformKey: d.PlatformKey,
		Status:      d.Status,
		ExternalRef: d.ExternalRef,
		ErrorClass:  d.ErrorClass,
		RecordedAt:  d.RecordedAt,
	}

	id, err := uuid.Parse(docID)
	if err != nil {
		return entry, fmt.Errorf("parse doc id: %w", err)
	}
	entry.ID = id

	if entry.JobID, err = uuid.Parse(d.JobID); err != nil {
		return entry, fmt.Errorf("parse job id: %w", err)
	}
	if entry.ItemID, err = uuid.Parse(d.ItemID); err != nil {
		return entry, fmt.Errorf("parse item id: %w", err)
	}
	return entry, nil
}
