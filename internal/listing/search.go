package listing

import (
	"context"
	"iter"
	"strings"

	"rental-portal/internal/errorx"
	"rental-portal/internal/models"
	"rental-portal/internal/stats"

	"github.com/shopspring/decimal"
)

const defaultPageSize = 50

// Indexer mirrors catalog changes into a search index
type Indexer interface {
	IndexListing(ctx context.Context, l Listing) error
	RemoveProperty(ctx context.Context, id uint) error
}

// NopIndexer is used when no search backend is configured
type NopIndexer struct{}

func (NopIndexer) IndexListing(context.Context, Listing) error { return nil }
func (NopIndexer) RemoveProperty(context.Context, uint) error { return nil }

// Filters narrows a catalog search. Nil fields are ignored; set fields are
// combined with AND.
type Filters struct {
	Location     *string              // case-insensitive substring of the address
	PropertyType *models.PropertyType // exact type
	MaxPrice     *decimal.Decimal     // average unit rent <= MaxPrice
	PageSize     int
}

// Search returns the matching properties in insertion order. The sequence is
// lazy and restartable: each range runs the query again, one page at a time.
func (s *Service) Search(ctx context.Context, f Filters) iter.Seq2[Listing, error] {
	size := f.PageSize
	if size <= 0 {
		size = defaultPageSize
	}

	return func(yield func(Listing, error) bool) {
		if f.PropertyType != nil && !f.PropertyType.Valid() {
			yield(Listing{}, errorx.Validation("invalid property type %q", *f.PropertyType))
			return
		}

		var after uint
		for {
			page, err := s.searchPage(ctx, f, after, size)
			if err != nil {
				yield(Listing{}, err)
				return
			}
			if len(page) == 0 {
				return
			}

			listings, err := s.listingsFor(ctx, page)
			if err != nil {
				yield(Listing{}, err)
				return
			}
			for _, l := range listings {
				if f.MaxPrice != nil && l.Stats.AverageRent.GreaterThan(*f.MaxPrice) {
					continue
				}
				if !yield(l, nil) {
					return
				}
			}

			if len(page) < size {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

// Collect drains a search into a slice
func Collect(seq iter.Seq2[Listing, error]) ([]Listing, error) {
	var out []Listing
	for l, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Service) searchPage(ctx context.Context, f Filters, after uint, size int) ([]models.Property, error) {
	q := s.db.WithContext(ctx).Where("id > ?", after)
	if f.Location != nil && strings.TrimSpace(*f.Location) != "" {
		pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(*f.Location))) + "%"
		q = q.Where("LOWER(address) LIKE ? ESCAPE '!'", pattern)
	}
	if f.PropertyType != nil {
		q = q.Where("property_type = ?", *f.PropertyType)
	}

	var page []models.Property
	if err := q.Order("id").Limit(size).Find(&page).Error; err != nil {
		return nil, errorx.FromStore(err, "search properties")
	}
	return page, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// listingsFor loads the units of props in one query and derives each
// property's statistics and availability
func (s *Service) listingsFor(ctx context.Context, props []models.Property) ([]Listing, error) {
	ids := make([]uint, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}

	var rows []struct {
		PropertyID uint
		Status     models.OccupancyStatus
		Rent       decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&models.Apartment{}).
		Select("property_id", "status", "rent").
		Where("property_id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, errorx.FromStore(err, "load units for listings")
	}

	type acc struct {
		total, occupied int64
		rents           []decimal.Decimal
	}
	byProperty := make(map[uint]*acc, len(props))
	for _, r := range rows {
		a := byProperty[r.PropertyID]
		if a == nil {
			a = &acc{}
			byProperty[r.PropertyID] = a
		}
		a.total++
		if r.Status == models.OccupancyOccupied {
			a.occupied++
		}
		a.rents = append(a.rents, r.Rent)
	}

	out := make([]Listing, 0, len(props))
	for _, p := range props {
		a := byProperty[p.ID]
		if a == nil {
			a = &acc{}
		}
		st, err := stats.Compute(a.total, a.occupied, a.rents)
		if err != nil {
			return nil, err
		}
		out = append(out, Listing{
			Property:     p,
			Stats:        st,
			Availability: availability(st),
		})
	}
	return out, nil
}

// availability is Vacant when any unit is vacant
func availability(st stats.Stats) models.OccupancyStatus {
	if st.VacantUnits > 0 {
		return models.OccupancyVacant
	}
	return models.OccupancyOccupied
}
