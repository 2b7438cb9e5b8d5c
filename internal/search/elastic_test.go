package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/sweet_shop/internal/models"
)

func TestBuildQuery_MatchAllWithoutFilters(t *testing.T) {
	q := BuildQuery(models.SweetFilter{Offset: 20, Limit: 10})

	assert.Equal(t, map[string]any{"match_all": map[string]any{}}, q["query"])
	assert.Equal(t, 20, q["from"])
	assert.Equal(t, 10, q["size"])
}

func TestBuildQuery_BoolQuery(t *testing.T) {
	lo, hi := 1.0, 5.0
	q := BuildQuery(models.SweetFilter{
		Query:    "  dark truffle ",
		Category: models.CategoryChocolate,
		MinPrice: &lo,
		MaxPrice: &hi,
		Limit:    10,
	})

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	var body struct {
		Query struct {
			Bool struct {
				Must   []map[string]map[string]any `json:"must"`
				Filter []map[string]map[string]any `json:"filter"`
			} `json:"bool"`
		} `json:"query"`
		Sort []map[string]map[string]string `json:"sort"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))

	require.Len(t, body.Query.Bool.Must, 1)
	assert.Equal(t, "dark truffle", body.Query.Bool.Must[0]["multi_match"]["query"])

	require.Len(t, body.Query.Bool.Filter, 2)
	assert.Equal(t, "chocolate", body.Query.Bool.Filter[0]["term"]["category"])
	assert.Equal(t, map[string]any{"gte": 1.0, "lte": 5.0}, body.Query.Bool.Filter[1]["range"]["price"])

	assert.Equal(t, "desc", body.Sort[0]["createdAt"]["order"])
}

func TestBuildQuery_OnlyMinPrice(t *testing.T) {
	lo := 2.0
	q := BuildQuery(models.SweetFilter{MinPrice: &lo, Limit: 10})

	boolQuery := q["query"].(map[string]any)["bool"].(map[string]any)
	assert.NotContains(t, boolQuery, "must")
	rng := boolQuery["filter"].([]any)[0].(map[string]any)["range"].(map[string]any)["price"].(map[string]any)
	assert.Equal(t, 2.0, rng["gte"])
	assert.NotContains(t, rng, "lte")
}

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"6f1c1d2e-8a54-4b8e-9d3a-2f6d5b1c0a11","name":"Dark Truffle","category":"chocolate","price":4.5,"quantity":10}}]}}`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	default:
		_, _ = io.WriteString(w, `{"result":"created"}`)
	}
}

func TestElastic_AgainstFakeServer(t *testing.T) {
	fake := &fakeES{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := NewClient(srv.URL, "", "")
	require.NoError(t, err)
	es := NewElastic(client, "sweets")
	ctx := context.Background()

	sweet := models.Sweet{ID: uuid.New(), Name: "Fudge", Category: models.CategoryCandy, Price: 2, CreatedAt: time.Now().UTC()}
	require.NoError(t, es.IndexSweet(ctx, sweet))
	require.NoError(t, es.DeleteSweet(ctx, sweet.ID))

	total, items, err := es.Search(ctx, models.SweetFilter{Query: "truffle", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Dark Truffle", items[0].Name)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	joined := strings.Join(fake.requests, "\n")
	assert.Contains(t, joined, "/sweets/_doc/"+sweet.ID.String())
	assert.Contains(t, joined, "DELETE /sweets/_doc/"+sweet.ID.String())
	assert.Contains(t, joined, "/sweets/_search")
	assert.Contains(t, strings.Join(fake.bodies, "\n"), `"multi_match"`)
}
