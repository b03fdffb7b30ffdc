package typesense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/zatekoja/stayaudit/pkg/config"
	"github.com/zatekoja/stayaudit/pkg/retry"
)

// Client represents a Typesense client
type Client struct {
	client         *typesense.Client
	embeddingModel string
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Successfully connected to Typesense")
	return &Client{client: client, embeddingModel: cfg.EmbeddingModel}, nil
}

// NewClientFromTypesense wraps an already configured SDK client
func NewClientFromTypesense(client *typesense.Client, embeddingModel string) *Client {
	return &Client{client: client, embeddingModel: embeddingModel}
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// KnowledgeSchema returns the schema of a knowledge collection. The
// embedding field is generated by Typesense from the content field.
func KnowledgeSchema(name, embeddingModel string) (*api.CollectionSchema, error) {
	raw := map[string]any{
		"name": name,
		"fields": []map[string]any{
			{"name": "content", "type": "string"},
			{"name": "tipo", "type": "string", "facet": true, "optional": true},
			{"name": "patologia", "type": "string", "facet": true, "optional": true},
			{"name": "metadata_json", "type": "string", "index": false, "optional": true},
			{
				"name": "embedding",
				"type": "float[]",
				"embed": map[string]any{
					"from":         []string{"content"},
					"model_config": map[string]any{"model_name": embeddingModel},
				},
			},
		},
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var schema api.CollectionSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to build collection schema: %w", err)
	}
	return &schema, nil
}

// EnsureCollection creates the knowledge collection when it is missing
func (c *Client) EnsureCollection(ctx context.Context, name string) error {
	_, err := c.client.Collection(name).Retrieve(ctx)
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return fmt.Errorf("failed to retrieve collection %s: %w", name, err)
	}

	schema, err := KnowledgeSchema(name, c.embeddingModel)
	if err != nil {
		return err
	}
	if _, err := c.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	log.Info().Str("collection", name).Msg("Created Typesense collection")
	return nil
}

// DropCollection deletes a collection, ignoring a missing one
func (c *Client) DropCollection(ctx context.Context, name string) error {
	_, err := c.client.Collection(name).Delete(ctx)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	return nil
}

// IsNotFound reports a 404 answer from Typesense
func IsNotFound(err error) bool {
	var httpErr *typesense.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusNotFound
	}
	return false
}
