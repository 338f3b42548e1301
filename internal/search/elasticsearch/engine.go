package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/search"
	"github.com/Sivaraj16/medicals/pkg/httpclient"
)

const backend = "elasticsearch"

// Config selects the cluster, index and HTTP transport.
type Config struct {
	URL   string
	Index string
	// Transport carries every request. Retries and circuit breaking belong
	// here; the client's own retry loop is disabled.
	Transport http.RoundTripper
}

// Engine is an Elasticsearch-backed search.Engine.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// New connects to Elasticsearch and makes sure the medicine index exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{cfg.URL},
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	e := &Engine{client: client, indexName: cfg.Index, logger: logger}
	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure elasticsearch index: %w", err)
	}
	return e, nil
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return httpclient.StatusError(backend, res.StatusCode, res.Body)
	}
	return nil
}

func (e *Engine) ensureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		e.logger.Info("elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return httpclient.StatusError(backend, res.StatusCode, res.Body)
	}

	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// Index adds or replaces one medicine.
func (e *Engine) Index(ctx context.Context, m *domain.Medicine) error {
	data, err := json.Marshal(search.NewDocument(m))
	if err != nil {
		return fmt.Errorf("marshal medicine document: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(m.ID),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return httpclient.StatusError(backend, res.StatusCode, res.Body)
	}

	e.logger.DebugContext(ctx, "indexed medicine", slog.String("medicine_id", m.ID))
	return nil
}

// Delete removes a medicine. A missing document is ignored.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(e.indexName, id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return httpclient.StatusError(backend, res.StatusCode, res.Body)
	}
	return nil
}

// BulkIndex adds or replaces many medicines in one request.
func (e *Engine) BulkIndex(ctx context.Context, medicines []domain.Medicine) error {
	if len(medicines) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range medicines {
		meta := map[string]any{"index": map[string]any{"_index": e.indexName, "_id": medicines[i].ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(search.NewDocument(&medicines[i])); err != nil {
			return fmt.Errorf("encode bulk document: %w", err)
		}
	}

	res, err := e.client.Bulk(&buf,
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return httpclient.StatusError(backend, res.StatusCode, res.Body)
	}

	var bulk bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulk.Errors {
		failed := 0
		var first string
		for _, item := range bulk.Items {
			if item.Index.Status >= 300 {
				if failed == 0 {
					first = fmt.Sprintf("%s: %s", item.Index.ID, item.Index.Error.Reason)
				}
				failed++
			}
		}
		return fmt.Errorf("elasticsearch bulk: %d of %d documents failed, first %s", failed, len(medicines), first)
	}

	e.logger.InfoContext(ctx, "bulk indexed medicines", slog.Int("count", len(medicines)))
	return nil
}

// Search matches names, including partial words, plus supplier and batch id.
func (e *Engine) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	return decodeSearch(res)
}

func decodeSearch(res *esapi.Response) (*search.Result, error) {
	if res.IsError() {
		return nil, httpclient.StatusError(backend, res.StatusCode, res.Body)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return &search.Result{IDs: ids, Total: sr.Hits.Total.Value}, nil
}

func buildQuery(q search.Query) map[string]any {
	text := strings.TrimSpace(q.Text)

	var must any = map[string]any{"match_all": map[string]any{}}
	if text != "" {
		must = map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"multi_match": map[string]any{
						"query":         text,
						"fields":        []string{"name^3", "name.autocomplete^2", "supplier"},
						"fuzziness":     "AUTO",
						"prefix_length": 1,
					}},
					map[string]any{"term": map[string]any{"batch_id": strings.ToLower(text)}},
				},
				"minimum_should_match": 1,
			},
		}
	}

	return map[string]any{
		"query":            must,
		"size":             q.NormalizedLimit(),
		"track_total_hits": true,
		"_source":          false,
		"sort": []any{
			map[string]any{"_score": "desc"},
			map[string]any{"name.keyword": "asc"},
		},
	}
}
