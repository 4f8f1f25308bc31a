// Package azuresearch is a minimal REST client for Azure Cognitive Search
// vector indexes.
package azuresearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/liliang-cn/ragchat/internal/domain"
)

const providerName = "azure-search"

// vectorQueriesSince is the first api-version that takes "vectorQueries"
// instead of the preview "vectors" search parameter.
const vectorQueriesSince = "2023-10-01"

// Config configures the client.
type Config struct {
	Endpoint   string // https://{service}.search.windows.net
	IndexName  string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to one search index.
type Client struct {
	endpoint   string
	index      string
	apiKey     string
	apiVersion string
	client     *http.Client
}

// document is the index schema shared with ingestion.
type document struct {
	Action      string                  `json:"@search.action,omitempty"`
	Score       float64                 `json:"@search.score,omitempty"`
	ID          string                  `json:"id"`
	PageContent string                  `json:"pageContent"`
	Meta        domain.DocumentMetadata `json:"meta"`
	Embedding   []float32               `json:"embedding,omitempty"`
}

type indexRequest struct {
	Value []document `json:"value"`
}

type indexResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		StatusCode   int    `json:"statusCode"`
	} `json:"value"`
}

type vectorQuery struct {
	Kind   string    `json:"kind,omitempty"`
	Vector []float32 `json:"vector,omitempty"`
	Value  []float32 `json:"value,omitempty"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type searchRequest struct {
	Vectors       []vectorQuery `json:"vectors,omitempty"`
	VectorQueries []vectorQuery `json:"vectorQueries,omitempty"`
	Select        string        `json:"select"`
	Top           int           `json:"top"`
}

type searchResponse struct {
	Value []document `json:"value"`
}

// NewClient creates a new search client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.IndexName == "" {
		return nil, fmt.Errorf("azuresearch: endpoint and index name are required")
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("azuresearch: api version is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		index:      cfg.IndexName,
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		client:     httpClient,
	}, nil
}

// Upsert uploads records in one batch and returns the assigned keys.
// Any failed document fails the whole call.
func (c *Client) Upsert(ctx context.Context, records []domain.IndexRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	req := indexRequest{Value: make([]document, len(records))}
	for i, r := range records {
		req.Value[i] = document{
			Action:      "upload",
			ID:          r.ID,
			PageContent: r.PageContent,
			Meta:        r.Metadata,
			Embedding:   r.Embedding,
		}
	}

	var resp indexResponse
	if err := c.post(ctx, "index", "/docs/index", req, &resp); err != nil {
		return nil, dimensionError(err, len(records[0].Embedding))
	}

	var failed []string
	keys := make([]string, 0, len(resp.Value))
	for _, v := range resp.Value {
		if !v.Status {
			failed = append(failed, fmt.Sprintf("%s: %s", v.Key, v.ErrorMessage))
			continue
		}
		keys = append(keys, v.Key)
	}
	if len(failed) > 0 {
		return nil, &domain.ProviderError{
			Provider: providerName,
			Op:       "index",
			Body:     fmt.Sprintf("%d of %d documents failed: %s", len(failed), len(records), strings.Join(failed, "; ")),
		}
	}
	if len(keys) != len(records) {
		return nil, &domain.ProviderError{
			Provider: providerName,
			Op:       "index",
			Body:     fmt.Sprintf("expected %d keys, got %d", len(records), len(keys)),
		}
	}
	return keys, nil
}

// SimilaritySearch returns up to k documents nearest to vector over field,
// highest score first.
func (c *Client) SimilaritySearch(ctx context.Context, vector []float32, k int, field string) ([]domain.RetrievedDocument, error) {
	if k <= 0 {
		return nil, &domain.ValidationError{Field: "k", Reason: "must be positive"}
	}
	if field == "" {
		field = "embedding"
	}

	req := searchRequest{Select: "id,pageContent,meta", Top: k}
	if c.apiVersion >= vectorQueriesSince {
		req.VectorQueries = []vectorQuery{{Kind: "vector", Vector: vector, Fields: field, K: k}}
	} else {
		req.Vectors = []vectorQuery{{Value: vector, Fields: field, K: k}}
	}

	var resp searchResponse
	if err := c.post(ctx, "search", "/docs/search", req, &resp); err != nil {
		return nil, dimensionError(err, len(vector))
	}

	sort.SliceStable(resp.Value, func(i, j int) bool {
		return resp.Value[i].Score > resp.Value[j].Score
	})
	if len(resp.Value) > k {
		resp.Value = resp.Value[:k]
	}

	docs := make([]domain.RetrievedDocument, len(resp.Value))
	for i, d := range resp.Value {
		docs[i] = domain.RetrievedDocument{
			ID:          d.ID,
			PageContent: d.PageContent,
			Metadata:    d.Meta,
			Score:       d.Score,
		}
	}
	return docs, nil
}

// dimensionError reclassifies a 400 complaining about vector size.
func dimensionError(err error, got int) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(pe.Body), "dimension") {
		return fmt.Errorf("%w: %w", &domain.DimensionMismatchError{Got: got}, pe)
	}
	return err
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/indexes/%s%s?api-version=%s",
		c.endpoint, url.PathEscape(c.index), path, url.QueryEscape(c.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.ProviderError{
			Provider:   providerName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &domain.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
