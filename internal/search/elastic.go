package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/sweet_shop/internal/models"
)

// Index mirrors the sweets table for search.
type Index interface {
	IndexSweet(ctx context.Context, sweet models.Sweet) error
	DeleteSweet(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f models.SweetFilter) (int64, []models.Sweet, error)
	Reindex(ctx context.Context, sweets []models.Sweet) error
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "name":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "category":    {"type": "keyword", "fields": {"text": {"type": "text"}}},
      "price":       {"type": "double"},
      "quantity":    {"type": "integer"},
      "description": {"type": "text"},
      "imageUrl":    {"type": "keyword", "index": false},
      "createdAt":   {"type": "date"},
      "updatedAt":   {"type": "date"}
    }
  }
}`

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch: info: %s: %s", res.Status(), body)
	}

	slog.Info("elasticsearch connected", "url", url)
	return client, nil
}

type Elastic struct {
	ES    *elasticsearch.Client
	Index string
}

func NewElastic(es *elasticsearch.Client, index string) *Elastic {
	return &Elastic{ES: es, Index: index}
}

func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.ES.Indices.Exists([]string{e.Index}, e.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.ES.Indices.Create(
		e.Index,
		e.ES.Indices.Create.WithContext(ctx),
		e.ES.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: create index: %s: %s", res.Status(), body)
	}
	return nil
}

func (e *Elastic) IndexSweet(ctx context.Context, sweet models.Sweet) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(sweet); err != nil {
		return fmt.Errorf("elasticsearch: encode sweet: %w", err)
	}

	res, err := e.ES.Index(
		e.Index,
		&buf,
		e.ES.Index.WithContext(ctx),
		e.ES.Index.WithDocumentID(sweet.ID.String()),
		e.ES.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index sweet: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: index sweet: %s", res.Status())
	}
	return nil
}

func (e *Elastic) DeleteSweet(ctx context.Context, id uuid.UUID) error {
	res, err := e.ES.Delete(
		e.Index,
		id.String(),
		e.ES.Delete.WithContext(ctx),
		e.ES.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: delete sweet: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch: delete sweet: %s", res.Status())
	}
	return nil
}

// Reindex pushes every given sweet into the index.
func (e *Elastic) Reindex(ctx context.Context, sweets []models.Sweet) error {
	for _, s := range sweets {
		if err := e.IndexSweet(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Elastic) Search(ctx context.Context, f models.SweetFilter) (int64, []models.Sweet, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(BuildQuery(f)); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: encode query: %w", err)
	}

	res, err := e.ES.Search(
		e.ES.Search.WithContext(ctx),
		e.ES.Search.WithIndex(e.Index),
		e.ES.Search.WithBody(&buf),
		e.ES.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("elasticsearch: search: %s", res.Status())
	}

	return decodeHits(res.Body)
}

func decodeHits(body io.Reader) (int64, []models.Sweet, error) {
	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Sweet `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: decode response: %w", err)
	}

	sweets := make([]models.Sweet, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		sweets[i] = hit.Source
	}
	return r.Hits.Total.Value, sweets, nil
}

func BuildQuery(f models.SweetFilter) map[string]any {
	var must []any
	var filter []any

	if q := strings.TrimSpace(f.Query); q != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"name^2", "category.text", "description"},
			},
		})
	}
	if f.Category != "" {
		filter = append(filter, map[string]any{
			"term": map[string]any{"category": string(f.Category)},
		})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		rng := map[string]any{}
		if f.MinPrice != nil {
			rng["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			rng["lte"] = *f.MaxPrice
		}
		filter = append(filter, map[string]any{
			"range": map[string]any{"price": rng},
		})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 || len(filter) > 0 {
		boolQuery := map[string]any{}
		if len(must) > 0 {
			boolQuery["must"] = must
		}
		if len(filter) > 0 {
			boolQuery["filter"] = filter
		}
		query = map[string]any{"bool": boolQuery}
	}

	return map[string]any{
		"query": query,
		"from":  f.Offset,
		"size":  f.Limit,
		"sort": []any{
			map[string]any{"createdAt": map[string]any{"order": "desc"}},
			map[string]any{"id": map[string]any{"order": "desc"}},
		},
	}
}
