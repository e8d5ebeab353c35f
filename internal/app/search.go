package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hotel_search/internal/adapters/observability"
	"hotel_search/internal/domain"
)

const (
	MaxCities = 25
	MaxHotels = 20
)

// Sub-step names used in faults, logs and metrics.
const (
	StepCityExact   = "city_exact"
	StepCityPrefix  = "city_prefix"
	StepCityEnrich  = "city_enrich"
	StepHotelExact  = "hotel_exact"
	StepHotelPrefix = "hotel_prefix"
)

type SearchService struct {
	inv      domain.InventoryReader
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewSearchService reads the inventory on every call unless both a cache and a
// positive ttl are given.
func NewSearchService(inv domain.InventoryReader, c domain.Cache, ttl time.Duration) *SearchService {
	if ttl <= 0 {
		c = nil
	}
	return &SearchService{inv: inv, cache: c, cacheTTL: ttl}
}

// Resolve classifies searchTerm against the inventory. Lookup failures inside
// the snapshot degrade to empty sub-results and are reported in Faults.
func (s *SearchService) Resolve(ctx context.Context, searchTerm string) (domain.Resolution, error) {
	term := strings.TrimSpace(searchTerm)
	if term == "" {
		return domain.Resolution{}, fmt.Errorf("%w: search term is required", domain.ErrValidation)
	}

	key := searchCacheKey(term)
	if s.cache != nil {
		var cached domain.Resolution
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	var res domain.Resolution
	err := s.inv.ReadSnapshot(ctx, func(ctx context.Context, v domain.InventoryView) error {
		res = resolve(ctx, v, term)
		return nil
	})
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("%w: read snapshot: %w", domain.ErrInternal, err)
	}

	for _, f := range res.Faults {
		log.Warn().Err(f.Err).Str("step", f.Step).Str("term", term).Msg("search step failed")
		observability.ObserveStepFault(f.Step)
	}
	observability.ObserveSearch(string(res.ResultType))
	log.Debug().
		Str("term", term).
		Str("result_type", string(res.ResultType)).
		Int("cities", len(res.Cities)).
		Int("hotels", len(res.Hotels)).
		Int("countries", len(res.Countries)).
		Msg("search resolved")

	// a degraded answer must not outlive the fault
	if s.cache != nil && !res.Degraded() {
		_ = s.cache.Set(ctx, key, res, int(s.cacheTTL.Seconds()))
	}
	return res, nil
}

func searchCacheKey(term string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(term))
}

type cityBranch struct {
	exact  bool
	cities []domain.CityResult
	faults []domain.StepFault
}

type hotelBranch struct {
	exact  bool
	hotels []domain.Hotel
	faults []domain.StepFault
}

// resolve runs the city and hotel branches concurrently; they share nothing
// until compose.
func resolve(ctx context.Context, v domain.InventoryView, term string) domain.Resolution {
	var (
		cb cityBranch
		hb hotelBranch
	)
	var g errgroup.Group
	g.Go(func() error {
		cb = resolveCities(ctx, v, term)
		return nil
	})
	g.Go(func() error {
		hb = resolveHotels(ctx, v, term)
		return nil
	})
	_ = g.Wait()
	return compose(cb, hb)
}

func resolveCities(ctx context.Context, v domain.InventoryView, term string) cityBranch {
	var b cityBranch

	cities, err := v.FindCities(ctx, term, domain.MatchExact, MaxCities)
	if err != nil {
		b.faults = append(b.faults, domain.StepFault{Step: StepCityExact, Err: err})
		cities = nil
	}
	if len(cities) > 0 {
		b.exact = true
	} else {
		cities, err = v.FindCities(ctx, term, domain.MatchPrefix, MaxCities)
		if err != nil {
			b.faults = append(b.faults, domain.StepFault{Step: StepCityPrefix, Err: err})
			cities = nil
		}
	}

	// keyed by name: a later city with the same name replaces the earlier one in place
	byName := make(map[string]int, len(cities))
	for _, c := range cities {
		r := domain.NewCityResult(c)
		if r == nil {
			continue
		}
		if i, ok := byName[r.CityName]; ok {
			b.cities[i] = *r
			continue
		}
		byName[r.CityName] = len(b.cities)
		b.cities = append(b.cities, *r)
	}
	if len(b.cities) == 0 {
		return b
	}

	codes := make([]string, 0, len(b.cities))
	for _, c := range b.cities {
		codes = append(codes, c.CityCode)
	}
	rows, err := v.HotelCodesByCity(ctx, codes)
	if err != nil {
		b.faults = append(b.faults, domain.StepFault{Step: StepCityEnrich, Err: err})
		rows = nil
	}
	byCode := make(map[string][]string, len(codes))
	for _, r := range rows {
		if r.Code == nil || r.CityCode == nil {
			continue
		}
		k := strings.ToLower(*r.CityCode)
		byCode[k] = append(byCode[k], *r.Code)
	}

	kept := b.cities[:0]
	for _, c := range b.cities {
		hc := byCode[strings.ToLower(c.CityCode)]
		if len(hc) == 0 {
			continue
		}
		c.HotelCodes = hc
		c.HotelCount = len(hc)
		kept = append(kept, c)
	}
	b.cities = kept
	return b
}

func resolveHotels(ctx context.Context, v domain.InventoryView, term string) hotelBranch {
	var b hotelBranch
	seen := make(map[string]struct{}, MaxHotels)
	add := func(h domain.Hotel) {
		k := hotelKey(h)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		b.hotels = append(b.hotels, h)
	}

	exact, err := v.FindHotels(ctx, term, domain.MatchExact, MaxHotels)
	if err != nil {
		b.faults = append(b.faults, domain.StepFault{Step: StepHotelExact, Err: err})
		exact = nil
	}
	b.exact = len(exact) > 0
	for _, h := range exact {
		if len(b.hotels) >= MaxHotels {
			break
		}
		add(h)
	}

	if len(b.hotels) >= MaxHotels {
		return b
	}
	// every exact hit is also a prefix hit; over-fetch by that many so the
	// remainder can still be filled after dedup
	prefix, err := v.FindHotels(ctx, term, domain.MatchPrefix, MaxHotels+len(exact))
	if err != nil {
		b.faults = append(b.faults, domain.StepFault{Step: StepHotelPrefix, Err: err})
		return b
	}
	for _, h := range prefix {
		if len(b.hotels) >= MaxHotels {
			break
		}
		add(h)
	}
	return b
}

// hotelKey dedups by code; hotels without one fall back to their id.
func hotelKey(h domain.Hotel) string {
	if h.Code != nil {
		return "code:" + *h.Code
	}
	return fmt.Sprintf("id:%d", h.ID)
}

// compose classifies and merges both branches. Cities produced by the city
// branch keep their batched counts; hotel matches only create aggregates for
// cities that branch did not return.
func compose(cb cityBranch, hb hotelBranch) domain.Resolution {
	res := domain.Resolution{ResultType: domain.ResultMixed}
	switch {
	case cb.exact:
		res.ResultType = domain.ResultCity
	case hb.exact:
		res.ResultType = domain.ResultHotel
	}

	res.Cities = append(make([]domain.CityResult, 0, len(cb.cities)), cb.cities...)
	cityIdx := make(map[string]int, len(res.Cities))
	for i, c := range res.Cities {
		cityIdx[c.CityName] = i
	}
	fromCityBranch := len(res.Cities)

	countryIdx := map[string]int{}
	res.Hotels = make([]domain.HotelResult, 0, len(hb.hotels))
	for _, h := range hb.hotels {
		res.Hotels = append(res.Hotels, domain.NewHotelResult(h))

		if name, code := deref(h.CityName), deref(h.CityCode); name != "" && code != "" {
			if i, ok := cityIdx[name]; ok {
				if i >= fromCityBranch {
					res.Cities[i].HotelCount++
				}
			} else {
				cityIdx[name] = len(res.Cities)
				res.Cities = append(res.Cities, domain.CityResult{
					Type:        domain.KindCity,
					CityName:    name,
					CityCode:    code,
					CountryName: h.CountryName,
					CountryCode: h.CountryCode,
					HotelCount:  1,
					HotelCodes:  []string{},
				})
			}
		}

		if cn := deref(h.CountryName); cn != "" {
			if i, ok := countryIdx[cn]; ok {
				res.Countries[i].Count++
			} else {
				countryIdx[cn] = len(res.Countries)
				res.Countries = append(res.Countries, domain.CountryTally{
					CountryName: cn,
					CountryCode: deref(h.CountryCode),
					Count:       1,
				})
			}
		}
	}

	res.Faults = append(append(res.Faults, cb.faults...), hb.faults...)
	return res
}
