package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	server "hotel_search/internal/adapters/http_server"
	"hotel_search/internal/app"
	"hotel_search/internal/domain"
)

func ptr[T any](v T) *T { return &v }

// stubInventory answers exact lookups for one city and one hotel.
type stubInventory struct {
	city  domain.City
	hotel domain.Hotel
	err   error
}

func (s *stubInventory) ReadSnapshot(ctx context.Context, fn func(context.Context, domain.InventoryView) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(ctx, s)
}

func (s *stubInventory) FindCities(ctx context.Context, term string, mode domain.MatchMode, limit int) ([]domain.City, error) {
	if s.city.Name != nil && strings.EqualFold(*s.city.Name, term) {
		return []domain.City{s.city}, nil
	}
	return nil, nil
}

func (s *stubInventory) FindHotels(ctx context.Context, term string, mode domain.MatchMode, limit int) ([]domain.Hotel, error) {
	if s.hotel.Name != nil && strings.HasPrefix(strings.ToLower(*s.hotel.Name), strings.ToLower(term)) {
		return []domain.Hotel{s.hotel}, nil
	}
	return nil, nil
}

func (s *stubInventory) HotelCodesByCity(ctx context.Context, codes []string) ([]domain.HotelCode, error) {
	return []domain.HotelCode{{Code: ptr("H1"), CityCode: s.city.Code}}, nil
}

type stubListings struct {
	got domain.ListingQuery
	out []domain.Listing
	err error
}

func (s *stubListings) SearchListings(ctx context.Context, q domain.ListingQuery) ([]domain.Listing, error) {
	s.got = q
	return s.out, s.err
}

func newTestServer(inv domain.InventoryReader, lr domain.ListingRepository) http.Handler {
	srv := server.New(5 * time.Second)
	srv.MountHandlers(&server.Handlers{
		Search:   app.NewSearchService(inv, nil, time.Minute),
		Listings: app.NewListingService(lr),
	})
	return srv.Mux()
}

func fixtureInventory() *stubInventory {
	facilities := domain.ParseDocument([]byte(`[{"id":9007199254740993,"name":"wifi"}]`))
	return &stubInventory{
		city: domain.City{ID: 1, Name: ptr("Paris"), Code: ptr("PAR"),
			Country: &domain.Country{Name: ptr("France"), Code: ptr("FR")}},
		hotel: domain.Hotel{
			ID: 9007199254740993, Code: ptr("H1"), Name: ptr("Paris Opera"),
			Facilities: facilities, CityCode: ptr("PAR"), CityName: ptr("Paris"),
		},
	}
}

func postSearch(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return rr, out
}

func TestSearch_OK(t *testing.T) {
	h := newTestServer(fixtureInventory(), &stubListings{})
	rr, out := postSearch(t, h, `{"searchTerm":"paris"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if out["success"] != true {
		t.Fatalf("success = %v", out["success"])
	}
	data := out["data"].(map[string]any)
	if data["resultType"] != "city" {
		t.Fatalf("resultType = %v", data["resultType"])
	}
	results := data["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("results = %v", results)
	}

	city := results[0].(map[string]any)
	if city["type"] != "city" || city["cityCode"] != "PAR" || city["hotelCount"].(float64) != 1 {
		t.Fatalf("city = %v", city)
	}

	hotel := results[1].(map[string]any)
	if hotel["type"] != "hotel" {
		t.Fatalf("hotel = %v", hotel)
	}
	if hotel["id"] != "9007199254740993" {
		t.Fatalf("id must be a decimal string, got %#v", hotel["id"])
	}
	if imgs, ok := hotel["images"].([]any); !ok || len(imgs) != 0 {
		t.Fatalf("null images must serialize as [], got %#v", hotel["images"])
	}
	fac := hotel["facilities"].([]any)[0].(map[string]any)
	if fac["id"] != "9007199254740993" {
		t.Fatalf("unsafe integer in document must be a string, got %#v", fac["id"])
	}
}

func TestSearch_BadRequest(t *testing.T) {
	h := newTestServer(fixtureInventory(), &stubListings{})
	for _, body := range []string{`{}`, `{"searchTerm":""}`, `{"searchTerm":"   "}`, `not json`} {
		rr, out := postSearch(t, h, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", body, rr.Code)
		}
		if out["success"] != false || out["message"] != "Search term is required" {
			t.Fatalf("%s: body=%v", body, out)
		}
		if _, ok := out["data"]; ok {
			t.Fatalf("%s: unexpected data", body)
		}
	}
}

func TestSearch_InternalError(t *testing.T) {
	h := newTestServer(&stubInventory{err: errors.New("too many connections")}, &stubListings{})
	rr, out := postSearch(t, h, `{"searchTerm":"paris"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if out["success"] != false || out["error"] != "Internal server error" {
		t.Fatalf("body=%v", out)
	}
	if msg, _ := out["message"].(string); !strings.Contains(msg, "too many connections") {
		t.Fatalf("message = %q", msg)
	}
}

func TestSearchListings_QueryAndETag(t *testing.T) {
	lr := &stubListings{out: []domain.Listing{
		{ID: 1, Name: "Alpine Lodge", Location: "Zermatt", PricePerNight: 210, Amenities: []string{"spa", "wifi"}, Rating: ptr(4.8)},
	}}
	h := newTestServer(fixtureInventory(), lr)

	req := httptest.NewRequest(http.MethodGet, "/hotels/search?location=zer&minPrice=100&maxPrice=250&amenities=spa,%20wifi", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if *lr.got.Location != "zer" || *lr.got.MinPrice != 100 || *lr.got.MaxPrice != 250 {
		t.Fatalf("query = %+v", lr.got)
	}
	if strings.Join(lr.got.Amenities, "|") != "spa|wifi" {
		t.Fatalf("amenities = %q", lr.got.Amenities)
	}
	var got []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != "1" || got[0]["pricePerNight"].(float64) != 210 {
		t.Fatalf("body = %v", got)
	}

	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	req = httptest.NewRequest(http.MethodGet, "/hotels/search?location=zer&minPrice=100&maxPrice=250&amenities=spa,%20wifi", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr.Code)
	}
}

func TestSearchListings_Errors(t *testing.T) {
	h := newTestServer(fixtureInventory(), &stubListings{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/hotels/search?minPrice=cheap", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad price: status=%d", rr.Code)
	}

	h = newTestServer(fixtureInventory(), &stubListings{err: errors.New("boom")})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/hotels/search", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("fault: status=%d", rr.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if out["error"] != "Failed to search hotels" {
		t.Fatalf("body = %v", out)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(fixtureInventory(), &stubListings{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}
