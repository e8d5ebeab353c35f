package domain

import "fmt"

type ResultType string

const (
	ResultCity  ResultType = "city"
	ResultHotel ResultType = "hotel"
	ResultMixed ResultType = "mixed"
)

const (
	KindCity  = "city"
	KindHotel = "hotel"
)

// SearchResult is either a CityResult or a HotelResult; Kind is the discriminant
// carried on the wire as "type".
type SearchResult interface {
	Kind() string
}

type CityResult struct {
	Type        string   `json:"type"`
	CityName    string   `json:"cityName"`
	CityCode    string   `json:"cityCode"`
	CountryName *string  `json:"countryName"`
	CountryCode *string  `json:"countryCode"`
	HotelCount  int      `json:"hotelCount"`
	HotelCodes  []string `json:"hotelCodes"`
}

func (CityResult) Kind() string { return KindCity }

// NewCityResult returns nil when the city lacks a name or a code.
func NewCityResult(c City) *CityResult {
	if c.Name == nil || *c.Name == "" || c.Code == nil || *c.Code == "" {
		return nil
	}
	r := &CityResult{Type: KindCity, CityName: *c.Name, CityCode: *c.Code, HotelCodes: []string{}}
	if c.Country != nil {
		r.CountryName = c.Country.Name
		r.CountryCode = c.Country.Code
	}
	return r
}

type HotelResult struct {
	Type         string   `json:"type"`
	ID           int64    `json:"id,string"`
	Code         *string  `json:"code"`
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Attractions  Document `json:"attractions"`
	Images       Document `json:"images"`
	Address      *string  `json:"address"`
	PinCode      *string  `json:"pinCode"`
	PhoneNumber  *string  `json:"phoneNumber"`
	FaxNumber    *string  `json:"faxNumber"`
	Map          *string  `json:"map"`
	Rating       *float64 `json:"rating"`
	CheckInTime  *string  `json:"checkInTime"`
	CheckOutTime *string  `json:"checkOutTime"`
	Facilities   Document `json:"facilities"`
	CityCode     *string  `json:"cityCode"`
	CityName     *string  `json:"cityName"`
	CountryName  *string  `json:"countryName"`
	CountryCode  *string  `json:"countryCode"`
}

func (HotelResult) Kind() string { return KindHotel }

func NewHotelResult(h Hotel) HotelResult {
	return HotelResult{
		Type:         KindHotel,
		ID:           h.ID,
		Code:         h.Code,
		Name:         h.Name,
		Description:  h.Description,
		Attractions:  h.Attractions.OrEmptyArray(),
		Images:       h.Images.OrEmptyArray(),
		Address:      h.Address,
		PinCode:      h.PinCode,
		PhoneNumber:  h.PhoneNumber,
		FaxNumber:    h.FaxNumber,
		Map:          h.Map,
		Rating:       h.Rating,
		CheckInTime:  h.CheckInTime,
		CheckOutTime: h.CheckOutTime,
		Facilities:   h.Facilities.OrEmptyArray(),
		CityCode:     h.CityCode,
		CityName:     h.CityName,
		CountryName:  h.CountryName,
		CountryCode:  h.CountryCode,
	}
}

// CountryTally counts matched hotels per country during hotel resolution.
type CountryTally struct {
	CountryName string `json:"countryName"`
	CountryCode string `json:"countryCode"`
	Count       int    `json:"count"`
}

// StepFault records a sub-step whose lookup failed and was treated as empty.
type StepFault struct {
	Step string
	Err  error
}

func (f StepFault) Error() string { return fmt.Sprintf("%s: %v", f.Step, f.Err) }
func (f StepFault) Unwrap() error { return f.Err }

// Resolution is the classified outcome for one search term. Cities always
// precede hotels in Results.
type Resolution struct {
	ResultType ResultType     `json:"resultType"`
	Cities     []CityResult   `json:"cities"`
	Hotels     []HotelResult  `json:"hotels"`
	Countries  []CountryTally `json:"countries"`
	Faults     []StepFault    `json:"-"`
}

func (r Resolution) Results() []SearchResult {
	out := make([]SearchResult, 0, len(r.Cities)+len(r.Hotels))
	for _, c := range r.Cities {
		out = append(out, c)
	}
	for _, h := range r.Hotels {
		out = append(out, h)
	}
	return out
}

func (r Resolution) Degraded() bool { return len(r.Faults) > 0 }
