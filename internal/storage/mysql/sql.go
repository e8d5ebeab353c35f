package mysql

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"hotel_search/internal/domain"
)

const hotelColumns = `id, code, name, description, attractions, images, address, pin_code,
  phone_number, fax_number, map, rating, check_in_time, check_out_time, facilities,
  city_code, city_name, country_name, country_code`

const upsertCountrySuffix = `ON DUPLICATE KEY UPDATE
  name       = VALUES(name),
  updated_at = CURRENT_TIMESTAMP`

// country_id is resolved from the country code in the same statement; an
// unknown code leaves it NULL.
const upsertCitySQL = `
INSERT INTO cities (code, name, country_id)
VALUES (?, ?, (SELECT id FROM countries WHERE code = ?))
ON DUPLICATE KEY UPDATE
  name       = VALUES(name),
  country_id = VALUES(country_id),
  updated_at = CURRENT_TIMESTAMP
`

const upsertHotelSuffix = `ON DUPLICATE KEY UPDATE
  code           = VALUES(code),
  name           = VALUES(name),
  description    = VALUES(description),
  attractions    = VALUES(attractions),
  images         = VALUES(images),
  address        = VALUES(address),
  pin_code       = VALUES(pin_code),
  phone_number   = VALUES(phone_number),
  fax_number     = VALUES(fax_number),
  map            = VALUES(map),
  rating         = VALUES(rating),
  check_in_time  = VALUES(check_in_time),
  check_out_time = VALUES(check_out_time),
  facilities     = VALUES(facilities),
  city_code      = VALUES(city_code),
  city_name      = VALUES(city_name),
  country_name   = VALUES(country_name),
  country_code   = VALUES(country_code),
  updated_at     = CURRENT_TIMESTAMP`

const insertMissSQL = `
INSERT INTO ingest_misses (id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE http_status = VALUES(http_status), reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards; MySQL's default escape character is '\'.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

// nameMatch builds the case-insensitive name predicate for col.
func nameMatch(col, term string, mode domain.MatchMode) sq.Sqlizer {
	lower := strings.ToLower(term)
	if mode == domain.MatchPrefix {
		return sq.Like{"LOWER(" + col + ")": escapeLike(lower) + "%"}
	}
	return sq.Eq{"LOWER(" + col + ")": lower}
}

func citiesQuery(term string, mode domain.MatchMode, limit int) (string, []any, error) {
	return sq.Select("c.id", "c.name", "c.code", "co.name", "co.code").
		From("cities c").
		LeftJoin("countries co ON co.id = c.country_id").
		Where(nameMatch("c.name", term, mode)).
		OrderBy("c.id").
		Limit(uint64(limit)).
		ToSql()
}

func hotelsQuery(term string, mode domain.MatchMode, limit int) (string, []any, error) {
	return sq.Select(hotelColumns).
		From("hotels").
		Where(nameMatch("name", term, mode)).
		OrderBy("id").
		Limit(uint64(limit)).
		ToSql()
}

// hotelCodesQuery is the single batched enrichment lookup. city_code uses a
// case-insensitive collation, so IN matches regardless of case.
func hotelCodesQuery(cityCodes []string) (string, []any, error) {
	return sq.Select("code", "city_code").
		From("hotels").
		Where(sq.Eq{"city_code": cityCodes}).
		OrderBy("id").
		ToSql()
}

func listingsQuery(q domain.ListingQuery) (string, []any, error) {
	b := sq.Select("id", "name", "location", "price_per_night", "amenities", "rating").
		From("hotel_listings")
	if q.Location != nil && *q.Location != "" {
		b = b.Where(sq.Like{"LOWER(location)": "%" + escapeLike(strings.ToLower(*q.Location)) + "%"})
	}
	if q.MinPrice != nil {
		b = b.Where(sq.GtOrEq{"price_per_night": *q.MinPrice})
	}
	if q.MaxPrice != nil {
		b = b.Where(sq.LtOrEq{"price_per_night": *q.MaxPrice})
	}
	for _, a := range q.Amenities {
		b = b.Where(sq.Expr("JSON_CONTAINS(amenities, JSON_QUOTE(?))", a))
	}
	return b.OrderBy("rating DESC", "id").ToSql()
}
