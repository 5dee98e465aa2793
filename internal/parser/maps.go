package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/gmaps-poi-scraper/internal/models"
)

type Field string

const (
	FieldPlace       Field = "Place"
	FieldOverview    Field = "Overview"
	FieldCategory    Field = "Category"
	FieldAddress     Field = "Address"
	FieldPrice       Field = "Price"
	FieldRating      Field = "Rating"
	FieldReviewCount Field = "Review_count"
)

// Fields lists every extracted field in output order.
var Fields = []Field{
	FieldPlace,
	FieldOverview,
	FieldCategory,
	FieldAddress,
	FieldPrice,
	FieldRating,
	FieldReviewCount,
}

// DefaultExtractors returns the selectors for the Google Maps detail panel.
// They track a live, unversioned UI and are expected to drift.
func DefaultExtractors() map[Field]FieldExtractor {
	return map[Field]FieldExtractor{
		FieldPlace: FirstOf{
			XPath{Expr: `//h1[@class='DUwDvf lfPIob']/text()`},
			CSS{Selector: "h1.DUwDvf"},
			Attr{Selector: `div[role="main"][aria-label]`, Name: "aria-label"},
		},
		FieldOverview: XPath{Expr: `//div[@class='y0K5Df']//div[contains(@class,'PYvSYb')]/text()`},
		FieldCategory: CSS{Selector: `button[jsaction*="category"]`},
		FieldAddress: FirstOf{
			CSS{Selector: `button.CsEnBe[aria-label*="Address"] div.Io6YTe`},
			CSS{Selector: `button[data-item-id="address"] div.Io6YTe`},
		},
		FieldPrice:       XPath{Expr: `(//div[@class='drwWxc'])[1]/text()`},
		FieldRating:      CSS{Selector: `div.F7nice span[aria-hidden*="true"]`},
		FieldReviewCount: CSS{Selector: `span[aria-label*="reviews"]`},
	}
}

type MapsParser struct {
	extractors      map[Field]FieldExtractor
	coordPattern    *regexp.Regexp
	currencyPattern *regexp.Regexp
	groupedPattern  *regexp.Regexp
	decimalPattern  *regexp.Regexp
	freeWords       []string
	now             func() time.Time
}

func NewMapsParser() *MapsParser {
	return &MapsParser{
		extractors:      DefaultExtractors(),
		coordPattern:    regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`),
		currencyPattern: regexp.MustCompile(`(?i)^(rp\.?|idr|us\$|\$|€)\s*`),
		groupedPattern:  regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`),
		decimalPattern:  regexp.MustCompile(`^\d+([.,]\d+)?$`),
		freeWords:       []string{"free", "gratis"},
		now:             time.Now,
	}
}

// WithExtractor replaces the extractor used for a field.
func (p *MapsParser) WithExtractor(field Field, ex FieldExtractor) *MapsParser {
	p.extractors[field] = ex
	return p
}

func (p *MapsParser) ParseDetailPanel(html, pageURL, city string) (*models.Place, error) {
	doc, err := NewDocument(html)
	if err != nil {
		return nil, err
	}

	values := p.ExtractFields(doc)

	place := &models.Place{
		Place:       optional(values, FieldPlace),
		Overview:    optional(values, FieldOverview),
		Category:    optional(values, FieldCategory),
		Address:     optional(values, FieldAddress),
		City:        city,
		Rating:      normalizeRating(optional(values, FieldRating)),
		ReviewCount: normalizeReviewCount(optional(values, FieldReviewCount)),
		ScrapedAt:   p.now(),
	}

	priceText, found := values[FieldPrice]
	place.Price = p.ParsePrice(priceText, found)

	if lat, lng, ok := p.ExtractCoordinates(pageURL); ok {
		place.Latitude = &lat
		place.Longitude = &lng
	}

	return place, nil
}

// ExtractFields runs every configured extractor and returns the fields that were found.
func (p *MapsParser) ExtractFields(doc *Document) map[Field]string {
	values := make(map[Field]string, len(p.extractors))
	for _, field := range Fields {
		ex, ok := p.extractors[field]
		if !ok {
			continue
		}
		if v, ok := ex.Extract(doc); ok {
			values[field] = v
		}
	}
	return values
}

func (p *MapsParser) ExtractCoordinates(pageURL string) (string, string, bool) {
	matches := p.coordPattern.FindStringSubmatch(pageURL)
	if len(matches) < 3 {
		return "", "", false
	}
	return matches[1], matches[2], true
}

// ParsePrice maps a missing price or "free" to 0, plain amounts to numbers and
// keeps anything else (ranges, "$$") as text.
func (p *MapsParser) ParsePrice(text string, found bool) models.Price {
	text = strings.TrimSpace(text)
	if !found || text == "" {
		return models.FreePrice()
	}

	for _, word := range p.freeWords {
		if strings.EqualFold(text, word) {
			return models.FreePrice()
		}
	}

	amount := p.currencyPattern.ReplaceAllString(text, "")
	amount = strings.NewReplacer(" ", "", "\u00a0", "").Replace(amount)

	switch {
	case p.groupedPattern.MatchString(amount):
		amount = strings.NewReplacer(".", "", ",", "").Replace(amount)
	case p.decimalPattern.MatchString(amount):
		amount = strings.Replace(amount, ",", ".", 1)
	default:
		return models.Price{Text: text}
	}

	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return models.Price{Text: text}
	}

	return models.Price{Amount: value, Numeric: true}
}

func optional(values map[Field]string, field Field) *string {
	v, ok := values[field]
	if !ok {
		return nil
	}
	return models.StringPtr(v)
}

// normalizeRating turns the Indonesian "4,5" into "4.5".
func normalizeRating(rating *string) *string {
	if rating == nil {
		return nil
	}

	candidate := strings.Replace(*rating, ",", ".", 1)
	if _, err := strconv.ParseFloat(candidate, 64); err == nil {
		return &candidate
	}
	return rating
}

// normalizeReviewCount turns "(1,234)" into "1234". Other text is kept as-is.
func normalizeReviewCount(count *string) *string {
	if count == nil {
		return nil
	}

	digits := strings.Trim(*count, "() ")
	digits = strings.NewReplacer(",", "", ".", "").Replace(digits)
	if _, err := strconv.Atoi(digits); err == nil {
		return &digits
	}
	return count
}
