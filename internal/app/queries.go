package app

import (
	"context"
	"strings"

	"hotel_search/internal/domain"
)

// ListingService serves the structured hotel filter. It shares no logic with
// the search resolver.
type ListingService struct {
	repo domain.ListingRepository
}

func NewListingService(r domain.ListingRepository) *ListingService {
	return &ListingService{repo: r}
}

func (s *ListingService) Search(ctx context.Context, q domain.ListingQuery) ([]domain.Listing, error) {
	if q.Location != nil {
		loc := strings.TrimSpace(*q.Location)
		if loc == "" {
			q.Location = nil
		} else {
			q.Location = &loc
		}
	}
	amenities := make([]string, 0, len(q.Amenities))
	for _, a := range q.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	q.Amenities = amenities
	return s.repo.SearchListings(ctx, q)
}
