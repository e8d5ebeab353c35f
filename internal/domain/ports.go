package domain

import "context"

type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchPrefix
)

func (m MatchMode) String() string {
	if m == MatchPrefix {
		return "prefix"
	}
	return "exact"
}

// InventoryReader opens one consistent read snapshot over cities and hotels.
// The view passed to fn must not be used after fn returns.
type InventoryReader interface {
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context, v InventoryView) error) error
}

// InventoryView lookups are case-insensitive on names. Implementations must be
// safe for concurrent use by the goroutines of a single resolution.
type InventoryView interface {
	FindCities(ctx context.Context, term string, mode MatchMode, limit int) ([]City, error)
	FindHotels(ctx context.Context, term string, mode MatchMode, limit int) ([]Hotel, error)
	HotelCodesByCity(ctx context.Context, cityCodes []string) ([]HotelCode, error)
}

type InventoryWriter interface {
	UpsertCountry(ctx context.Context, c Country) error
	UpsertCity(ctx context.Context, c City) error
	UpsertHotel(ctx context.Context, h Hotel) error
	LogMiss(ctx context.Context, id int64, status int, reason string) error
}

type ListingRepository interface {
	SearchListings(ctx context.Context, q ListingQuery) ([]Listing, error)
}

type UpstreamClient interface {
	GetProperty(ctx context.Context, id int64) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
