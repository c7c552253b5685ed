package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"example.com/disasterwatch/services/alerts/config"
	"example.com/disasterwatch/services/alerts/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client. Returns nil
// without error when indexing is disabled; callers treat a nil client
// as "no search".
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{client: client, config: cfg}, nil
}

// IndexAlert indexes one alert document, keyed by its source/external
// identity so reindexing the same alert overwrites the previous document.
func (c *ElasticClient) IndexAlert(ctx context.Context, alert *models.Alert) error {
	if c == nil {
		return nil
	}

	doc := map[string]interface{}{
		"source_id":   alert.SourceID,
		"external_id": alert.ExternalID,
		"title":       alert.Title,
		"description": alert.Description,
		"event_type":  alert.EventType,
		"severity":    alert.Severity,
		"country":     alert.Country,
		"iso3":        alert.ISO3,
		"lat":         alert.Lat,
		"lon":         alert.Lon,
		"link":        alert.Link,
		"event_time":  alert.EventTime,
		"expires_at":  alert.ExpiresAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal alert document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, c.config.Index),
		DocumentID: fmt.Sprintf("%d-%s", alert.SourceID, alert.ExternalID),
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Str("external_id", alert.ExternalID).Msg("alert indexed")
	return nil
}
