// Package nftdata is the client for the aggregated NFT collection data
// gateway: the tracked collection list, per-collection core data, and trait
// attribute rankings. All list endpoints use cursor pagination with a
// max-iteration safety cap.
package nftdata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/platform/request"
)

// maxPageIterations bounds cursor pagination loops against a gateway that
// never terminates its cursor chain.
const maxPageIterations = 10

// Client implements domain.CollectionProvider.
type Client struct {
	http   *request.Client
	logger *slog.Logger
}

// New creates a collection data client for the given gateway.
func New(baseURL, apiKey string, policy request.Policy, logger *slog.Logger) *Client {
	logger = logger.With(slog.String("component", "nftdata"))
	headers := map[string]string{"X-RapidAPI-Key": apiKey}
	return &Client{
		http:   request.New(baseURL, headers, policy, logger),
		logger: logger,
	}
}

type collectionsResponse struct {
	Collections []domain.Collection `json:"collections"`
	NextCursor  *string             `json:"nextCursor"`
}

// ListCollections returns the full remote collection list, draining the
// cursor chain.
func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	var (
		collections []domain.Collection
		cursor      *string
	)
	for i := 0; i <= maxPageIterations; i++ {
		payload := map[string]any{}
		if cursor != nil {
			payload["nextCursor"] = *cursor
		}

		var resp collectionsResponse
		if err := c.http.PostJSON(ctx, "/collections/", payload, &resp); err != nil {
			if len(collections) > 0 {
				// A mid-pagination failure yields the pages fetched so far.
				c.logger.Warn("collection list pagination aborted",
					slog.Int("fetched", len(collections)),
					slog.String("error", err.Error()),
				)
				return collections, nil
			}
			return nil, fmt.Errorf("nftdata: list collections: %w", err)
		}

		collections = append(collections, resp.Collections...)
		cursor = resp.NextCursor
		if cursor == nil {
			break
		}
	}
	return collections, nil
}

type collectionResponse struct {
	Collection *domain.Collection `json:"collection"`
}

// GetCollection returns core collection data for one slug.
func (c *Client) GetCollection(ctx context.Context, slug string) (*domain.Collection, error) {
	var resp collectionResponse
	if err := c.http.PostJSON(ctx, "/collection", map[string]any{"slug": slug}, &resp); err != nil {
		return nil, fmt.Errorf("nftdata: get collection %q: %w", slug, err)
	}
	if resp.Collection == nil {
		return nil, fmt.Errorf("nftdata: get collection %q: %w", slug, domain.ErrNoData)
	}
	return resp.Collection, nil
}

type attributesResponse struct {
	Attributes           []domain.Attribute `json:"attributes"`
	AttributesTotalCount int                `json:"attributesTotalCount"`
	NextCursor           *string            `json:"nextCursor"`
}

// GetCollectionAttributes returns the trait ranking for one slug, paging
// until the cursor chain ends or the reported total is reached.
func (c *Client) GetCollectionAttributes(ctx context.Context, slug string) ([]domain.Attribute, int, error) {
	var (
		attributes []domain.Attribute
		totalCount int
		cursor     *string
	)
	for i := 0; i <= maxPageIterations; i++ {
		payload := map[string]any{"slug": slug}
		if cursor != nil {
			payload["nextCursor"] = *cursor
		}

		var resp attributesResponse
		if err := c.http.PostJSON(ctx, "/collection/attributeranking", payload, &resp); err != nil {
			return nil, 0, fmt.Errorf("nftdata: get attributes for %q: %w", slug, err)
		}

		attributes = append(attributes, resp.Attributes...)
		totalCount = resp.AttributesTotalCount
		cursor = resp.NextCursor
		if cursor == nil || len(attributes) >= totalCount {
			break
		}
	}
	return attributes, totalCount, nil
}
