// Package search keeps an Elasticsearch index of the scheme catalogue.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultSize = 50

// document is the indexed projection of a scheme.
type document struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	Category            string `json:"category"`
	State               string `json:"state"`
	GovernmentLevel     string `json:"governmentLevel"`
	TargetBeneficiaries string `json:"targetBeneficiaries"`
	Status              string `json:"status"`
}

type SchemeIndex struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewSchemeIndex(client *elasticsearch.Client, index string) *SchemeIndex {
	return &SchemeIndex{client: client, index: index, size: defaultSize}
}

func (i *SchemeIndex) IndexScheme(ctx context.Context, s *models.Scheme) error {
	body, err := json.Marshal(document{
		Name:                s.Name,
		Description:         s.Description,
		Category:            s.Category,
		State:               s.State,
		GovernmentLevel:     s.GovernmentLevel,
		TargetBeneficiaries: s.TargetBeneficiaries,
		Status:              string(s.Status),
	})
	if err != nil {
		return apperrors.NewSearchFailedError(err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: s.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchFailedError(responseError("index", res))
	}
	return nil
}

// DeleteScheme removes a document; a document that is already gone is fine.
func (i *SchemeIndex) DeleteScheme(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: i.index, DocumentID: id}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchFailedError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return apperrors.NewSearchFailedError(responseError("delete", res))
	}
	return nil
}

// Search returns ids of schemes matching query, best match first.
func (i *SchemeIndex) Search(ctx context.Context, query string) ([]string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"_source": false,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^3", "description^2", "category", "targetBeneficiaries", "governmentLevel"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
	})
	if err != nil {
		return nil, apperrors.NewSearchFailedError(err)
	}

	size := i.size
	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewSearchFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.NewSearchFailedError(responseError("search", res))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchFailedError(fmt.Errorf("decode search response: %w", err))
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func responseError(op string, res *esapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), bytes.TrimSpace(msg))
}
