package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceRow(t *testing.T) {
	p := &Place{
		Place:     StringPtr("Museum X"),
		City:      "Bandung",
		Price:     FreePrice(),
		Latitude:  StringPtr("-6.9"),
		Longitude: StringPtr("107.6"),
	}

	row := p.Row()

	assert.Len(t, row, len(Columns))
	assert.Equal(t, []string{"Museum X", "", "", "", "Bandung", "0", "", "", "-6.9", "107.6"}, row)
	assert.Equal(t, "0", row[PriceColumn])
	assert.True(t, p.HasCoordinates())
}

func TestPriceString(t *testing.T) {
	tests := []struct {
		name     string
		price    Price
		expected string
	}{
		{"free", FreePrice(), "0"},
		{"integer amount", Price{Amount: 50000, Numeric: true}, "50000"},
		{"fractional amount", Price{Amount: 12.5, Numeric: true}, "12.5"},
		{"opaque text", Price{Text: "Rp 20.000–50.000"}, "Rp 20.000–50.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.price.String())
		})
	}
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Nil(t, StringPtr("   "))
	if assert.NotNil(t, StringPtr(" Taman ")) {
		assert.Equal(t, "Taman", *StringPtr(" Taman "))
	}
}
