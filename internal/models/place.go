package models

import (
	"strconv"
	"strings"
	"time"
)

// Columns is the output column order of a dataset file.
var Columns = []string{
	"Place",
	"Overview",
	"Category",
	"Address",
	"City",
	"Price",
	"Rating",
	"Review_count",
	"Latitude",
	"Longitude",
}

// PriceColumn is the index of Price within Columns.
const PriceColumn = 5

type Place struct {
	Place       *string `json:"place"`
	Overview    *string `json:"overview"`
	Category    *string `json:"category"`
	Address     *string `json:"address"`
	City        string  `json:"city"`
	Price       Price   `json:"price"`
	Rating      *string `json:"rating"`
	ReviewCount *string `json:"review_count"`
	Latitude    *string `json:"latitude"`
	Longitude   *string `json:"longitude"`

	SourceURL string    `json:"source_url"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Row renders the place in Columns order. Nil fields become empty cells.
func (p *Place) Row() []string {
	return []string{
		deref(p.Place),
		deref(p.Overview),
		deref(p.Category),
		deref(p.Address),
		p.City,
		p.Price.String(),
		deref(p.Rating),
		deref(p.ReviewCount),
		deref(p.Latitude),
		deref(p.Longitude),
	}
}

func (p *Place) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Price is either a number or, when the page shows something that is not a
// plain amount (e.g. "Rp 20.000–50.000"), the text as shown.
type Price struct {
	Amount  float64
	Text    string
	Numeric bool
}

func FreePrice() Price {
	return Price{Amount: 0, Numeric: true}
}

func (p Price) String() string {
	if p.Numeric {
		return strconv.FormatFloat(p.Amount, 'f', -1, 64)
	}
	return p.Text
}

func (p Price) IsFree() bool {
	return p.Numeric && p.Amount == 0
}

// StringPtr returns nil for blank input and a pointer to the trimmed text otherwise.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
