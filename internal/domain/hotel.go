package domain

type Country struct {
	Name *string
	Code *string
}

type City struct {
	ID      int64
	Name    *string
	Code    *string
	Country *Country
}

type Hotel struct {
	ID           int64
	Code         *string
	Name         *string
	Description  *string
	Attractions  Document
	Images       Document
	Facilities   Document
	Address      *string
	PinCode      *string
	PhoneNumber  *string
	FaxNumber    *string
	Map          *string
	Rating       *float64
	CheckInTime  *string
	CheckOutTime *string
	CityCode     *string
	CityName     *string
	CountryName  *string
	CountryCode  *string
}

// HotelCode is the projection used when counting inventory per city.
type HotelCode struct {
	Code     *string
	CityCode *string
}

// Listing belongs to the structured hotel filter; it shares nothing with Hotel.
type Listing struct {
	ID            int64    `json:"id,string"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	PricePerNight float64  `json:"pricePerNight"`
	Amenities     []string `json:"amenities"`
	Rating        *float64 `json:"rating"`
}

type ListingQuery struct {
	Location  *string
	MinPrice  *float64
	MaxPrice  *float64
	Amenities []string
}
