package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/models"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPAdapter is a generic REST adapter for platforms that accept a JSON
// publish payload and expose a metrics endpoint. Platform-specific adapters
// live outside the core; this one exists so deployments can wire simple
// partners without writing code.
type HTTPAdapter struct {
	platformKey string
	baseURL     string
	apiKey      string
	client      *http.Client
	logger      logger.Logger
}

// HTTPAdapterConfig holds configuration for a generic HTTP adapter
type HTTPAdapterConfig struct {
	PlatformKey string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
}

// NewHTTPAdapter creates a generic HTTP adapter
func NewHTTPAdapter(cfg HTTPAdapterConfig, log logger.Logger) *HTTPAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &HTTPAdapter{
		platformKey: cfg.PlatformKey,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      log,
	}
}

type publishResponse struct {
	ExternalRef string `json:"external_ref"`
}

// Publish POSTs the item listing to the platform's publish endpoint.
func (a *HTTPAdapter) Publish(ctx context.Context, item *models.ContentItem, cfg *models.PlatformConfig) (string, error) {
	payload := map[string]any{
		"id":          item.ID,
		"type":        item.Type,
		"title":       cfg.EffectiveTitle(item.Title),
		"description": item.Description,
		"genre":       item.Genre,
		"tags":        []string(item.Tags),
		"price":       cfg.EffectivePrice(item.BasePrice),
		"currency":    item.Currency,
	}
	if cfg.DescOverride != nil {
		payload["description"] = *cfg.DescOverride
	}
	if len(cfg.TagsOverride) > 0 {
		payload["tags"] = []string(cfg.TagsOverride)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", NewError(a.platformKey, models.ErrorClassRejected, fmt.Errorf("marshal payload: %w", err))
	}

	url := a.baseURL + "/v1/releases"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", NewError(a.platformKey, models.ErrorClassRejected, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("platform publish failed",
			logger.String("platform", a.platformKey),
			logger.Duration("duration", time.Since(start)),
			logger.Error(err),
		)
		return "", NewError(a.platformKey, classifyHTTPError(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", NewError(a.platformKey, models.ErrorClassTransient,
			fmt.Errorf("platform returned status %d", resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", NewError(a.platformKey, models.ErrorClassRejected,
			fmt.Errorf("platform returned status %d", resp.StatusCode))
	}

	var pub publishResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&pub); decodeErr != nil {
		return "", NewError(a.platformKey, models.ErrorClassRejected,
			fmt.Errorf("decode response: %w", decodeErr))
	}

	a.logger.Debug("published to platform",
		logger.String("platform", a.platformKey),
		logger.String("external_ref", pub.ExternalRef),
		logger.Duration("duration", time.Since(start)),
	)
	return pub.ExternalRef, nil
}

// FetchMetrics GETs the platform's current metric map.
func (a *HTTPAdapter) FetchMetrics(ctx context.Context, platformKey string) (map[string]float64, error) {
	url := a.baseURL + "/v1/metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics endpoint returned status %d", resp.StatusCode)
	}

	var metrics map[string]float64
	if decodeErr := json.NewDecoder(resp.Body).Decode(&metrics); decodeErr != nil {
		return nil, fmt.Errorf("decode metrics: %w", decodeErr)
	}
	return metrics, nil
}

func classifyHTTPError(ctx context.Context, err error) models.ErrorClass {
	if ctx.Err() != nil {
		return models.ErrorClassCancelled
	}
	if isTimeout(err) {
		return models.ErrorClassTimeout
	}
	return models.ErrorClassTransient
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
