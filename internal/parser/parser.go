package parser

import (
	"github.com/maltedev/gmaps-poi-scraper/internal/models"
)

type Parser interface {
	ParseDetailPanel(html, pageURL, city string) (*models.Place, error)
}
