package search

import (
	"testing"
	"time"

	"rental-portal/internal/listing"
	"rental-portal/internal/models"
	"rental-portal/internal/stats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	limit := decimal.RequireFromString("1200.50")

	tests := []struct {
		name   string
		params FilterParams
		want   string
	}{
		{"empty", FilterParams{}, ""},
		{"single type", FilterParams{PropertyTypes: []models.PropertyType{models.PropertyTypeHouse}}, "(property_type = 'House')"},
		{
			"types and rent",
			FilterParams{
				PropertyTypes:  []models.PropertyType{models.PropertyTypeHouse, models.PropertyTypeStudio},
				MaxAverageRent: &limit,
			},
			"(property_type = 'House' OR property_type = 'Studio') AND average_rent <= 1200.5",
		},
		{"available only", FilterParams{AvailableOnly: true}, "vacant_units > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Filter())
		})
	}
}

func TestValidSort(t *testing.T) {
	assert.True(t, ValidSort(""))
	assert.True(t, ValidSort("average_rent:asc"))
	assert.False(t, ValidSort("title:asc"))
	assert.False(t, ValidSort("average_rent"))
}

func TestDocumentFromListing(t *testing.T) {
	landlord := uuid.New()
	added := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	st, err := stats.Compute(3, 1, []decimal.Decimal{
		decimal.NewFromInt(1000),
		decimal.NewFromInt(1200),
		decimal.RequireFromString("1300.50"),
	})
	assert.NoError(t, err)

	doc := DocumentFromListing(listing.Listing{
		Property: models.Property{
			ID:           7,
			LandlordID:   landlord,
			Title:        "Maple Court",
			PropertyType: models.PropertyTypeApartment,
			Address:      "12 Maple St",
			MainImage:    "img/maple.jpg",
			DateAdded:    added,
		},
		Stats:        st,
		Availability: models.OccupancyVacant,
	})

	assert.Equal(t, uint(7), doc.ID)
	assert.Equal(t, "Apartment", doc.PropertyType)
	assert.Equal(t, landlord.String(), doc.LandlordID)
	assert.Equal(t, "img/maple.jpg", doc.MainImage)
	assert.InDelta(t, 1166.83, doc.AverageRent, 0.001)
	assert.InDelta(t, 33.3, doc.OccupancyRate, 0.001)
	assert.Equal(t, int64(3), doc.TotalUnits)
	assert.Equal(t, int64(2), doc.VacantUnits)
	assert.Equal(t, "Vacant", doc.Availability)
	assert.Equal(t, added.Unix(), doc.DateAdded)
}
