package charterapi

import "github.com/mateusz-wlodarczyk/boatwatch/pkg/db"

// PriceQuote is the price/discount pair returned for one candidate week.
// Discount is a percentage and may be zero.
type PriceQuote struct {
	Price    float64 `json:"price"`
	Discount float64 `json:"discount"`
}

// BoatAvailability is one boat's current reservation calendar.
type BoatAvailability struct {
	Slug      string                `json:"slug"`
	Intervals []db.ReservedInterval `json:"availabilities"`
}

// BoatDetails is one boat's listing metadata as returned by the search API.
type BoatDetails struct {
	Slug      string  `json:"slug"`
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Model     string  `json:"model"`
	Category  string  `json:"category"`
	Country   string  `json:"country"`
	Marina    string  `json:"marina"`
	Cabins    int     `json:"cabins"`
	Berths    int     `json:"berths"`
	Length    float64 `json:"length"`
	BuiltYear int     `json:"buildYear"`
}

// SearchPage is one page of the paginated boat search.
type SearchPage struct {
	TotalBoats int
	Boats      []BoatDetails
}

// Wire envelopes. The API double-wraps most payloads in data arrays.

type availabilityEnvelope struct {
	Status string             `json:"status"`
	Data   []BoatAvailability `json:"data"`
}

type priceEnvelope struct {
	Status string `json:"status"`
	Data   []struct {
		Data []PriceQuote `json:"data"`
	} `json:"data"`
}

type searchEnvelope struct {
	Data []struct {
		TotalBoats int           `json:"totalBoats"`
		Data       []BoatDetails `json:"data"`
	} `json:"data"`
}
