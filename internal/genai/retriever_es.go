package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"ai-receptionist/internal/catalog"
	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
)

// ESRetriever backs the Retriever interface with an elasticsearch match
// query over the seeded business-knowledge chunks.
type ESRetriever struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewESRetriever(client *elasticsearch.Client, index string, log logger.Logger) *ESRetriever {
	return &ESRetriever{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "es_retriever"}),
	}
}

type chunkDocument struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Retrieve runs a match query for the top k passages.
func (r *ESRetriever) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = 3
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"text": query,
			},
		},
		"size": k,
	}

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return nil, stderrors.NewRetrievalFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, stderrors.NewRetrievalFailedError(fmt.Errorf("search failed: %s", res.String()))
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Score  float64       `json:"_score"`
				Source chunkDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, stderrors.NewRetrievalFailedError(err)
	}

	passages := make([]Passage, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		passages = append(passages, Passage{
			Text:     hit.Source.Text,
			Category: hit.Source.Category,
			Score:    hit.Score,
		})
	}

	r.logger.Debug("retrieved passages", map[string]interface{}{
		"query": query,
		"count": len(passages),
	})
	return passages, nil
}

// Count reports how many chunks the index holds, for seed-skip checks.
func (r *ESRetriever) Count(ctx context.Context) (int, error) {
	req := esapi.CountRequest{Index: []string{r.index}}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return 0, stderrors.NewRetrievalFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		// A missing index means zero documents, not a failure.
		if res.StatusCode == 404 {
			return 0, nil
		}
		return 0, stderrors.NewRetrievalFailedError(fmt.Errorf("count failed: %s", res.String()))
	}

	var response struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return 0, stderrors.NewRetrievalFailedError(err)
	}
	return response.Count, nil
}

// SeedChunks indexes the catalog chunks, one document per chunk, using
// the chunk id as the document id so re-seeding is idempotent.
func (r *ESRetriever) SeedChunks(ctx context.Context, chunks []catalog.Chunk) error {
	for _, chunk := range chunks {
		doc, _ := json.Marshal(chunkDocument{Text: chunk.Text, Category: chunk.Category})
		req := esapi.IndexRequest{
			Index:      r.index,
			DocumentID: chunk.ID,
			Body:       bytes.NewReader(doc),
			Refresh:    "false",
		}
		res, err := req.Do(ctx, r.client)
		if err != nil {
			return stderrors.NewRetrievalFailedError(err)
		}
		res.Body.Close()
		if res.IsError() {
			return stderrors.NewRetrievalFailedError(fmt.Errorf("index chunk %s: %s", chunk.ID, res.Status()))
		}
	}

	r.logger.Info("seeded knowledge index", map[string]interface{}{
		"index":  r.index,
		"chunks": len(chunks),
	})
	return nil
}
