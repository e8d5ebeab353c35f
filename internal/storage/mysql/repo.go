package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"hotel_search/internal/domain"
)

var (
	_ domain.InventoryReader   = (*Repo)(nil)
	_ domain.InventoryWriter   = (*Repo)(nil)
	_ domain.ListingRepository = (*Repo)(nil)
	_ domain.InventoryView     = (*snapshot)(nil)
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valDoc(d domain.Document) any {
	if d.IsNull() {
		return nil
	}
	return string(d.Raw())
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

const (
	defaultTxTimeout = 30 * time.Second
	defaultTxMaxWait = 95 * time.Second
)

type Repo struct {
	db        *sql.DB
	txTimeout time.Duration
	txMaxWait time.Duration
}

type Option func(*Repo)

// WithTxBudget bounds how long a snapshot may run and how long it may wait
// for a pooled connection before it starts.
func WithTxBudget(timeout, maxWait time.Duration) Option {
	return func(r *Repo) {
		if timeout > 0 {
			r.txTimeout = timeout
		}
		if maxWait > 0 {
			r.txMaxWait = maxWait
		}
	}
}

func New(db *sql.DB, opts ...Option) *Repo {
	r := &Repo{db: db, txTimeout: defaultTxTimeout, txMaxWait: defaultTxMaxWait}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ReadSnapshot runs fn inside one read-only REPEATABLE READ transaction. Only
// acquiring the connection, opening the transaction or fn itself can fail it.
func (r *Repo) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, v domain.InventoryView) error) error {
	waitCtx, cancelWait := context.WithTimeout(ctx, r.txMaxWait)
	conn, err := r.db.Conn(waitCtx)
	cancelWait()
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	execCtx, cancel := context.WithTimeout(ctx, r.txTimeout)
	defer cancel()
	tx, err := conn.BeginTx(execCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	// read-only: nothing to commit, so the snapshot always ends in a rollback
	defer func() { _ = tx.Rollback() }()

	return fn(execCtx, &snapshot{tx: tx})
}

// snapshot serializes statements: a MySQL connection carries one result set
// at a time.
type snapshot struct {
	mu sync.Mutex
	tx *sql.Tx
}

func (s *snapshot) query(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *snapshot) FindCities(ctx context.Context, term string, mode domain.MatchMode, limit int) ([]domain.City, error) {
	q, args, err := citiesQuery(term, mode, limit)
	if err != nil {
		return nil, err
	}
	var out []domain.City
	err = s.query(ctx, q, args, func(rows *sql.Rows) error {
		var (
			c                    domain.City
			name, code           sql.NullString
			countryName, ctyCode sql.NullString
		)
		if err := rows.Scan(&c.ID, &name, &code, &countryName, &ctyCode); err != nil {
			return err
		}
		c.Name, c.Code = nullStr(name), nullStr(code)
		if countryName.Valid || ctyCode.Valid {
			c.Country = &domain.Country{Name: nullStr(countryName), Code: nullStr(ctyCode)}
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find cities (%s): %w", mode, err)
	}
	return out, nil
}

func (s *snapshot) FindHotels(ctx context.Context, term string, mode domain.MatchMode, limit int) ([]domain.Hotel, error) {
	q, args, err := hotelsQuery(term, mode, limit)
	if err != nil {
		return nil, err
	}
	var out []domain.Hotel
	err = s.query(ctx, q, args, func(rows *sql.Rows) error {
		h, err := scanHotel(rows)
		if err != nil {
			return err
		}
		out = append(out, h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find hotels (%s): %w", mode, err)
	}
	return out, nil
}

func (s *snapshot) HotelCodesByCity(ctx context.Context, cityCodes []string) ([]domain.HotelCode, error) {
	if len(cityCodes) == 0 {
		return nil, nil
	}
	q, args, err := hotelCodesQuery(cityCodes)
	if err != nil {
		return nil, err
	}
	var out []domain.HotelCode
	err = s.query(ctx, q, args, func(rows *sql.Rows) error {
		var code, cityCode sql.NullString
		if err := rows.Scan(&code, &cityCode); err != nil {
			return err
		}
		out = append(out, domain.HotelCode{Code: nullStr(code), CityCode: nullStr(cityCode)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hotel codes by city: %w", err)
	}
	return out, nil
}

func scanHotel(rows *sql.Rows) (domain.Hotel, error) {
	var (
		h                                       domain.Hotel
		code, name, desc, addr, pin, phone, fax sql.NullString
		mapURL, checkIn, checkOut               sql.NullString
		cityCode, cityName, countryN, countryC  sql.NullString
		rating                                  sql.NullFloat64
		attractions, images, facilities         []byte
	)
	if err := rows.Scan(
		&h.ID, &code, &name, &desc,
		&attractions, &images,
		&addr, &pin, &phone, &fax, &mapURL,
		&rating,
		&checkIn, &checkOut,
		&facilities,
		&cityCode, &cityName, &countryN, &countryC,
	); err != nil {
		return domain.Hotel{}, err
	}
	h.Code, h.Name, h.Description = nullStr(code), nullStr(name), nullStr(desc)
	h.Attractions = domain.ParseDocument(attractions)
	h.Images = domain.ParseDocument(images)
	h.Facilities = domain.ParseDocument(facilities)
	h.Address, h.PinCode, h.PhoneNumber, h.FaxNumber = nullStr(addr), nullStr(pin), nullStr(phone), nullStr(fax)
	h.Map = nullStr(mapURL)
	if rating.Valid {
		f := rating.Float64
		h.Rating = &f
	}
	h.CheckInTime, h.CheckOutTime = nullStr(checkIn), nullStr(checkOut)
	h.CityCode, h.CityName = nullStr(cityCode), nullStr(cityName)
	h.CountryName, h.CountryCode = nullStr(countryN), nullStr(countryC)
	return h, nil
}

// ---- listings ----

func (r *Repo) SearchListings(ctx context.Context, lq domain.ListingQuery) ([]domain.Listing, error) {
	q, args, err := listingsQuery(lq)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Listing{}
	for rows.Next() {
		var (
			l         domain.Listing
			amenities []byte
			rating    sql.NullFloat64
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Location, &l.PricePerNight, &amenities, &rating); err != nil {
			return nil, err
		}
		if len(amenities) > 0 {
			_ = json.Unmarshal(amenities, &l.Amenities)
		}
		if l.Amenities == nil {
			l.Amenities = []string{}
		}
		if rating.Valid {
			f := rating.Float64
			l.Rating = &f
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- write paths (ingestor) ----

func (r *Repo) UpsertCountry(ctx context.Context, c domain.Country) error {
	if c.Code == nil || strings.TrimSpace(*c.Code) == "" {
		return fmt.Errorf("%w: country code is required", domain.ErrValidation)
	}
	q, args, err := sq.Insert("countries").
		Columns("code", "name").
		Values(*c.Code, valStr(c.Name)).
		Suffix(upsertCountrySuffix).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *Repo) UpsertCity(ctx context.Context, c domain.City) error {
	if c.Code == nil || strings.TrimSpace(*c.Code) == "" {
		return fmt.Errorf("%w: city code is required", domain.ErrValidation)
	}
	var countryCode *string
	if c.Country != nil {
		countryCode = c.Country.Code
	}
	_, err := r.db.ExecContext(ctx, upsertCitySQL, *c.Code, valStr(c.Name), valStr(countryCode))
	return err
}

func (r *Repo) UpsertHotel(ctx context.Context, h domain.Hotel) error {
	q, args, err := sq.Insert("hotels").
		Columns("id", "code", "name", "description", "attractions", "images", "address", "pin_code",
			"phone_number", "fax_number", "map", "rating", "check_in_time", "check_out_time", "facilities",
			"city_code", "city_name", "country_name", "country_code").
		Values(h.ID, valStr(h.Code), valStr(h.Name), valStr(h.Description),
			valDoc(h.Attractions), valDoc(h.Images),
			valStr(h.Address), valStr(h.PinCode), valStr(h.PhoneNumber), valStr(h.FaxNumber), valStr(h.Map),
			valF64(h.Rating), valStr(h.CheckInTime), valStr(h.CheckOutTime),
			valDoc(h.Facilities),
			valStr(h.CityCode), valStr(h.CityName), valStr(h.CountryName), valStr(h.CountryCode)).
		Suffix(upsertHotelSuffix).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, id int64, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, id, status, reason)
	return err
}
