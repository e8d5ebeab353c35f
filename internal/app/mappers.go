package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"hotel_search/internal/domain"
)

/********** alias registries (single source of truth) **********/

var hotelAliases = map[string][]string{
	"code":         {"hotel_code", "code", "cupid_id", "hotel_id", "id"},
	"name":         {"hotel_name", "name"},
	"description":  {"description", "markdown_description", "description_long"},
	"address":      {"address.address", "address.line", "address_raw", "full_address", "address"},
	"pin_code":     {"address.postal_code", "address.zip", "postal_code", "pin_code", "zip"},
	"phone":        {"phone", "phone_number", "contact.phone"},
	"fax":          {"fax", "fax_number", "contact.fax"},
	"map":          {"map", "map_url", "google_maps_url"},
	"check_in":     {"checkin.checkin_start", "check_in_time", "checkin_time"},
	"check_out":    {"checkin.checkout", "check_out_time", "checkout_time"},
	"city_name":    {"address.city", "city_name", "city"},
	"city_code":    {"address.city_code", "city_code", "city_id"},
	"country_name": {"address.country_name", "country_name"},
	"country_code": {"address.country", "country_code", "countryCode"},
}

var documentAliases = map[string][]string{
	"attractions": {"attractions", "nearby_attractions", "points_of_interest"},
	"images":      {"photos", "images"},
	"facilities":  {"facilities", "amenities"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path, or a number rendered as text, or "".
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstDocument re-encodes the first array or object found under the aliases.
func firstDocument(m map[string]any, key string) domain.Document {
	for _, p := range documentAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case []any, map[string]any:
			b, err := json.Marshal(v)
			if err != nil {
				log.Error().Err(err).Str("path", p).Msg("failed to re-encode document")
				continue
			}
			return domain.ParseDocument(b)
		}
	}
	return domain.Document{}
}

/********** property mapper **********/

// inventoryRecord is one upstream property split into the rows it feeds.
type inventoryRecord struct {
	Country *domain.Country
	City    *domain.City
	Hotel   domain.Hotel
}

func mapProperty(fallbackID int64, p map[string]any) inventoryRecord {
	id := fallbackID
	if v := firstInt64Flexible(p, "hotel_id", "cupid_id", "id"); v != nil {
		id = *v
	}

	h := domain.Hotel{
		ID:           id,
		Code:         firstNonEmptyAlias(p, hotelAliases, "code"),
		Name:         firstNonEmptyAlias(p, hotelAliases, "name"),
		Description:  firstNonEmptyAlias(p, hotelAliases, "description"),
		Attractions:  firstDocument(p, "attractions"),
		Images:       firstDocument(p, "images"),
		Facilities:   firstDocument(p, "facilities"),
		Address:      firstNonEmptyAlias(p, hotelAliases, "address"),
		PinCode:      firstNonEmptyAlias(p, hotelAliases, "pin_code"),
		PhoneNumber:  firstNonEmptyAlias(p, hotelAliases, "phone"),
		FaxNumber:    firstNonEmptyAlias(p, hotelAliases, "fax"),
		Map:          firstNonEmptyAlias(p, hotelAliases, "map"),
		Rating:       getFloatFlexible(p, "rating", "stars", "review_score"),
		CheckInTime:  firstNonEmptyAlias(p, hotelAliases, "check_in"),
		CheckOutTime: firstNonEmptyAlias(p, hotelAliases, "check_out"),
		CityCode:     firstNonEmptyAlias(p, hotelAliases, "city_code"),
		CityName:     firstNonEmptyAlias(p, hotelAliases, "city_name"),
		CountryName:  firstNonEmptyAlias(p, hotelAliases, "country_name"),
		CountryCode:  firstNonEmptyAlias(p, hotelAliases, "country_code"),
	}
	if h.Map == nil {
		lat := getFloatFlexible(p, "latitude", "lat", "location.lat")
		lon := getFloatFlexible(p, "longitude", "lon", "lng", "location.lon", "location.lng")
		if lat != nil && lon != nil {
			s := strconv.FormatFloat(*lat, 'f', -1, 64) + "," + strconv.FormatFloat(*lon, 'f', -1, 64)
			h.Map = &s
		}
	}

	rec := inventoryRecord{Hotel: h}
	if h.CountryCode != nil {
		rec.Country = &domain.Country{Name: h.CountryName, Code: h.CountryCode}
	}
	if h.CityCode != nil {
		rec.City = &domain.City{Name: h.CityName, Code: h.CityCode, Country: rec.Country}
	}
	return rec
}
