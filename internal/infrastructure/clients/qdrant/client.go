package qdrant

import (
	"context"
	"fmt"
	"strings"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/zatekoja/stayaudit/pkg/config"
	"github.com/zatekoja/stayaudit/pkg/retry"
)

// Client wraps the Qdrant gRPC services
type Client struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
}

// NewClient dials Qdrant and waits until it reports healthy
func NewClient(cfg *config.QdrantConfig) (*Client, error) {
	conn, err := grpc.NewClient(cfg.QdrantAddr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	health := qdrant.NewQdrantClient(conn)
	err = retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		"Qdrant",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := health.HealthCheck(ctx, &qdrant.HealthCheckRequest{})
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Qdrant connection attempt failed")
		},
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to Qdrant after retries: %w", err)
	}

	log.Info().Str("addr", cfg.QdrantAddr()).Msg("Successfully connected to Qdrant")
	return &Client{
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
	}, nil
}

// Collections returns the collections service
func (c *Client) Collections() qdrant.CollectionsClient {
	return c.collections
}

// Points returns the points service
func (c *Client) Points() qdrant.PointsClient {
	return c.points
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// EnsureCollection creates a cosine collection of the given size if missing
func (c *Client) EnsureCollection(ctx context.Context, name string, dims int) error {
	_, err := c.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dims),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

// DropCollection deletes a collection, ignoring a missing one
func (c *Client) DropCollection(ctx context.Context, name string) error {
	_, err := c.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: name})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists || strings.Contains(err.Error(), "already exists")
}
