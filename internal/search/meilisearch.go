// Package search mirrors the listing catalog into a Meilisearch index for
// full-text queries. The index is a derived view; the database stays the
// source of truth.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"rental-portal/internal/listing"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// PropertyDocument is the indexed form of a listing
type PropertyDocument struct {
	ID            uint    `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	PropertyType  string  `json:"property_type"`
	Address       string  `json:"address"`
	MainImage     string  `json:"main_image"`
	LandlordID    string  `json:"landlord_id"`
	AverageRent   float64 `json:"average_rent"`
	TotalUnits    int64   `json:"total_units"`
	VacantUnits   int64   `json:"vacant_units"`
	OccupancyRate float64 `json:"occupancy_rate"`
	Availability  string  `json:"availability"`
	DateAdded     int64   `json:"date_added"`
}

// DocumentFromListing flattens a listing for indexing
func DocumentFromListing(l listing.Listing) PropertyDocument {
	avg, _ := l.Stats.AverageRent.Float64()
	rate, _ := l.Stats.OccupancyRate.Float64()
	p := l.Property
	return PropertyDocument{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		PropertyType:  string(p.PropertyType),
		Address:       p.Address,
		MainImage:     string(p.MainImage),
		LandlordID:    p.LandlordID.String(),
		AverageRent:   avg,
		TotalUnits:    l.Stats.TotalUnits,
		VacantUnits:   l.Stats.VacantUnits,
		OccupancyRate: rate,
		Availability:  string(l.Availability),
		DateAdded:     p.DateAdded.Unix(),
	}
}

type SearchClient struct {
	client *meilisearch.Client
	index  string
	log    *zap.Logger
}

func NewSearchClient(host, apiKey, index string, log *zap.Logger) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "properties"
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &SearchClient{
		client: client,
		index:  index,
		log:    log,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		s.log.Debug("create index returned error", zap.String("index", s.index), zap.Error(err))
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"address",
		"description",
	})
	if err != nil {
		return fmt.Errorf("failed to set searchable attributes: %w", err)
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"property_type",
		"average_rent",
		"availability",
		"vacant_units",
		"landlord_id",
	})
	if err != nil {
		return fmt.Errorf("failed to set filterable attributes: %w", err)
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"average_rent",
		"occupancy_rate",
		"date_added",
	})
	if err != nil {
		return fmt.Errorf("failed to set sortable attributes: %w", err)
	}

	return nil
}

// IndexListing adds or replaces one property document
func (s *SearchClient) IndexListing(_ context.Context, l listing.Listing) error {
	_, err := s.client.Index(s.index).AddDocuments([]PropertyDocument{DocumentFromListing(l)}, "id")
	return err
}

// RemoveProperty deletes a property document
func (s *SearchClient) RemoveProperty(_ context.Context, id uint) error {
	_, err := s.client.Index(s.index).DeleteDocument(fmt.Sprint(id))
	return err
}

// Rebuild indexes every listing of seq in batches
func (s *SearchClient) Rebuild(ctx context.Context, seq iter.Seq2[listing.Listing, error]) (int, error) {
	const batchSize = 100
	batch := make([]PropertyDocument, 0, batchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := s.client.Index(s.index).AddDocuments(batch, "id"); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for l, err := range seq {
		if err != nil {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch = append(batch, DocumentFromListing(l))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	s.log.Info("search index rebuilt", zap.String("index", s.index), zap.Int("documents", total))
	return total, nil
}

// SearchResult represents search results with facets
type SearchResult struct {
	Hits           []PropertyDocument     `json:"hits"`
	TotalHits      int64                  `json:"total_hits"`
	Facets         map[string]interface{} `json:"facets,omitempty"`
	ProcessingTime int64                  `json:"processing_time_ms"`
}

// FilterSearch performs a full-text search with filters
func (s *SearchClient) FilterSearch(params FilterParams) (*SearchResult, error) {
	if params.Limit == 0 {
		params.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	if filter := params.Filter(); filter != "" {
		searchReq.Filter = filter
	}
	if params.SortBy != "" {
		searchReq.Sort = []string{params.SortBy}
	}
	if len(params.Facets) > 0 {
		searchReq.Facets = params.Facets
	}

	searchRes, err := s.client.Index(s.index).Search(params.Query, searchReq)
	if err != nil {
		return nil, err
	}

	hits := make([]PropertyDocument, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		// Convert hit to JSON then to PropertyDocument
		hitJSON, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc PropertyDocument
		if err := json.Unmarshal(hitJSON, &doc); err != nil {
			continue
		}
		hits = append(hits, doc)
	}

	var facets map[string]interface{}
	if searchRes.FacetDistribution != nil {
		facets, _ = searchRes.FacetDistribution.(map[string]interface{})
	}

	return &SearchResult{
		Hits:           hits,
		TotalHits:      searchRes.EstimatedTotalHits,
		Facets:         facets,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}, nil
}

var _ listing.Indexer = (*SearchClient)(nil)
