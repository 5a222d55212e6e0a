package search

import (
	"fmt"
	"strings"

	"rental-portal/internal/models"

	"github.com/shopspring/decimal"
)

type FilterParams struct {
	Query          string
	PropertyTypes  []models.PropertyType
	MaxAverageRent *decimal.Decimal
	AvailableOnly  bool
	SortBy         string
	Facets         []string
	Limit          int64
	Offset         int64
}

var sortable = map[string]bool{
	"average_rent:asc":    true,
	"average_rent:desc":   true,
	"occupancy_rate:asc":  true,
	"occupancy_rate:desc": true,
	"date_added:asc":      true,
	"date_added:desc":     true,
}

// ValidSort reports whether s is an accepted sort expression
func ValidSort(s string) bool {
	return s == "" || sortable[s]
}

// Filter builds the Meilisearch filter expression
func (p FilterParams) Filter() string {
	var filters []string

	if len(p.PropertyTypes) > 0 {
		typeFilters := make([]string, len(p.PropertyTypes))
		for i, t := range p.PropertyTypes {
			typeFilters[i] = fmt.Sprintf("property_type = '%s'", t)
		}
		filters = append(filters, fmt.Sprintf("(%s)", strings.Join(typeFilters, " OR ")))
	}

	if p.MaxAverageRent != nil {
		filters = append(filters, fmt.Sprintf("average_rent <= %s", p.MaxAverageRent.String()))
	}

	if p.AvailableOnly {
		filters = append(filters, "vacant_units > 0")
	}

	return strings.Join(filters, " AND ")
}
