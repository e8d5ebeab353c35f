package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"hotel_search/internal/domain"
)

type IngestionService struct {
	upstream domain.UpstreamClient
	repo     domain.InventoryWriter
	cache    domain.Cache
}

func NewIngestionService(c domain.UpstreamClient, r domain.InventoryWriter, cache domain.Cache) *IngestionService {
	return &IngestionService{upstream: c, repo: r, cache: cache}
}

// IngestHotel pulls one property and upserts country, city and hotel in that
// order so the city row can resolve its country.
func (s *IngestionService) IngestHotel(ctx context.Context, id int64) error {
	p, err := s.upstream.GetProperty(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			_ = s.repo.LogMiss(ctx, id, 404, "not found")
			return nil
		case errors.Is(err, domain.ErrForbidden):
			_ = s.repo.LogMiss(ctx, id, 403, "inactive")
			return nil
		}
		return fmt.Errorf("fetch property %d: %w", id, err)
	}

	rec := mapProperty(id, p)
	if rec.Country != nil {
		if err := s.repo.UpsertCountry(ctx, *rec.Country); err != nil {
			return fmt.Errorf("upsert country for %d: %w", id, err)
		}
	}
	if rec.City != nil {
		if err := s.repo.UpsertCity(ctx, *rec.City); err != nil {
			return fmt.Errorf("upsert city for %d: %w", id, err)
		}
	}
	if err := s.repo.UpsertHotel(ctx, rec.Hotel); err != nil {
		return fmt.Errorf("upsert hotel %d: %w", id, err)
	}

	if s.cache != nil {
		s.invalidateSearches(ctx, rec.Hotel.Name, rec.Hotel.CityName)
	}
	return nil
}

// invalidateSearches drops cached resolutions for the exact names touched.
// Prefix terms cannot be enumerated; those age out with the cache TTL.
func (s *IngestionService) invalidateSearches(ctx context.Context, names ...*string) {
	for _, n := range names {
		if n == nil || *n == "" {
			continue
		}
		if err := s.cache.Del(ctx, searchCacheKey(*n)); err != nil {
			log.Warn().Err(err).Str("term", *n).Msg("search cache eviction failed")
		}
	}
}
