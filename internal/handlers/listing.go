package handlers

import (
	"net/http"
	"strings"

	"rental-portal/internal/auth"
	"rental-portal/internal/listing"
	"rental-portal/internal/models"
	"rental-portal/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ListingHandler serves the property and unit catalog
type ListingHandler struct {
	catalog *listing.Service
	stats   *stats.Service
	log     *zap.Logger
}

// NewListingHandler creates a listing handler
func NewListingHandler(catalog *listing.Service, st *stats.Service, log *zap.Logger) *ListingHandler {
	return &ListingHandler{catalog: catalog, stats: st, log: log}
}

// PropertySummary is one search result row
type PropertySummary struct {
	ID           uint                   `json:"id"`
	Title        string                 `json:"title"`
	PropertyType models.PropertyType    `json:"property_type"`
	Location     string                 `json:"location"`
	MainImage    models.MediaRef        `json:"main_image,omitempty"`
	AverageRent  decimal.Decimal        `json:"average_rent"`
	Availability models.OccupancyStatus `json:"availability"`
}

func summarize(l listing.Listing) PropertySummary {
	return PropertySummary{
		ID:           l.Property.ID,
		Title:        l.Property.Title,
		PropertyType: l.Property.PropertyType,
		Location:     l.Property.Address,
		MainImage:    l.Property.MainImage,
		AverageRent:  l.Stats.AverageRent,
		Availability: l.Availability,
	}
}

// parseFilters reads ?location=&property_type=&max_price=
func parseFilters(c *gin.Context) (listing.Filters, bool) {
	var f listing.Filters
	if loc := strings.TrimSpace(c.Query("location")); loc != "" {
		f.Location = &loc
	}
	if t := c.Query("property_type"); t != "" {
		pt, ok := models.ParsePropertyType(t)
		if !ok {
			badRequest(c, "invalid property type "+t)
			return f, false
		}
		f.PropertyType = &pt
	}
	if p := c.Query("max_price"); p != "" {
		price, err := decimal.NewFromString(p)
		if err != nil {
			badRequest(c, "invalid max_price "+p)
			return f, false
		}
		f.MaxPrice = &price
	}
	return f, true
}

// Search lists properties matching the filters, at most ?limit= rows
func (h *ListingHandler) Search(c *gin.Context) {
	f, ok := parseFilters(c)
	if !ok {
		return
	}
	limit := limitQuery(c, 100, 500)

	results := make([]PropertySummary, 0)
	for l, err := range h.catalog.Search(c.Request.Context(), f) {
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		results = append(results, summarize(l))
		if len(results) == limit {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// GetProperty returns a property with its units and statistics
func (h *ListingHandler) GetProperty(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	l, err := h.catalog.GetListing(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *ListingHandler) PropertyStats(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	st, err := h.stats.ForProperty(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Summary is the public home page overview
func (h *ListingHandler) Summary(c *gin.Context) {
	sum, err := h.stats.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *ListingHandler) CreateProperty(c *gin.Context) {
	var in listing.PropertyInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.catalog.CreateProperty(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ListingHandler) UpdateProperty(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in listing.PropertyInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.catalog.UpdateProperty(c.Request.Context(), auth.ActorFrom(c), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ListingHandler) DeleteProperty(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProperty(c.Request.Context(), auth.ActorFrom(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MyProperties lists the calling landlord's properties
func (h *ListingHandler) MyProperties(c *gin.Context) {
	props, err := h.catalog.PropertiesOf(c.Request.Context(), auth.ActorFrom(c).ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": props, "count": len(props)})
}

func (h *ListingHandler) ListUnits(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	units, err := h.catalog.ListUnits(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units, "count": len(units)})
}

func (h *ListingHandler) CreateUnit(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in listing.UnitInput
	if !bindJSON(c, &in) {
		return
	}
	unit, err := h.catalog.CreateUnit(c.Request.Context(), auth.ActorFrom(c), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

func (h *ListingHandler) GetUnit(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	unit, err := h.catalog.GetUnit(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

func (h *ListingHandler) UpdateUnit(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in listing.UnitInput
	if !bindJSON(c, &in) {
		return
	}
	unit, err := h.catalog.UpdateUnit(c.Request.Context(), auth.ActorFrom(c), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

type unitStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	TenantName string `json:"tenant_name"`
}

// UpdateUnitStatus is the landlord's manual occupancy override
func (h *ListingHandler) UpdateUnitStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req unitStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, valid := models.ParseOccupancyStatus(req.Status)
	if !valid {
		badRequest(c, "invalid status "+req.Status)
		return
	}
	unit, err := h.catalog.UpdateUnitStatus(c.Request.Context(), auth.ActorFrom(c), id, status, req.TenantName)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}
