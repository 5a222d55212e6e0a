package handlers

import (
	"context"
	"iter"
	"net/http"
	"strconv"
	"strings"

	"rental-portal/internal/listing"
	"rental-portal/internal/models"
	"rental-portal/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FullText is the full-text property index
type FullText interface {
	FilterSearch(params search.FilterParams) (*search.SearchResult, error)
	Rebuild(ctx context.Context, seq iter.Seq2[listing.Listing, error]) (int, error)
}

// SearchHandler serves keyword search over the property index
type SearchHandler struct {
	index   FullText
	catalog *listing.Service
	log     *zap.Logger
}

// NewSearchHandler creates a search handler. index may be nil when no search
// backend is configured.
func NewSearchHandler(index FullText, catalog *listing.Service, log *zap.Logger) *SearchHandler {
	return &SearchHandler{index: index, catalog: catalog, log: log}
}

func (h *SearchHandler) enabled(c *gin.Context) bool {
	if h.index == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody("unavailable", "full-text search is not configured"))
		return false
	}
	return true
}

// Search handles GET /api/search?q=&type=&max_rent=&available=&sort=&limit=&offset=
func (h *SearchHandler) Search(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	params := search.FilterParams{
		Query:  c.Query("q"),
		SortBy: c.Query("sort"),
		Limit:  int64(limitQuery(c, 20, 100)),
		Facets: []string{"property_type", "availability"},
	}
	for _, t := range c.QueryArray("type") {
		for _, part := range strings.Split(t, ",") {
			pt, ok := models.ParsePropertyType(part)
			if !ok {
				badRequest(c, "invalid property type "+part)
				return
			}
			params.PropertyTypes = append(params.PropertyTypes, pt)
		}
	}
	if v := c.Query("max_rent"); v != "" {
		rent, err := decimal.NewFromString(v)
		if err != nil {
			badRequest(c, "invalid max_rent "+v)
			return
		}
		params.MaxAverageRent = &rent
	}
	if v := c.Query("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "invalid available "+v)
			return
		}
		params.AvailableOnly = available
	}
	if v := c.Query("offset"); v != "" {
		offset, err := strconv.ParseInt(v, 10, 64)
		if err != nil || offset < 0 {
			badRequest(c, "invalid offset "+v)
			return
		}
		params.Offset = offset
	}
	if !search.ValidSort(params.SortBy) {
		badRequest(c, "invalid sort "+params.SortBy)
		return
	}

	result, err := h.index.FilterSearch(params)
	if err != nil {
		h.log.Error("full-text search failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, errorBody("unavailable", "search backend error"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reindex rebuilds the index from the catalog
func (h *SearchHandler) Reindex(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	n, err := h.index.Rebuild(c.Request.Context(), h.catalog.Search(c.Request.Context(), listing.Filters{}))
	if err != nil {
		h.log.Error("reindex failed", zap.Int("indexed", n), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, errorBody("unavailable", "reindex failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": n})
}
