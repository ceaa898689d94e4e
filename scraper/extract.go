package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"web-scraper-app/config"
	"web-scraper-app/models"
	"web-scraper-app/utils"
)

// Extract parses a listing page and returns one record per item element.
// Each record carries title, price and the configured extra fields; a
// sub-selector that matches nothing yields Null and the record is kept.
//
// Field selectors may end in "@attr" to read an attribute instead of the
// element text, e.g. "a.card-link@href".
func Extract(html string, sel config.Selectors) ([]models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var records []models.Record
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		rec := models.Record{
			models.FieldTitle: field(item, sel.Title),
			models.FieldPrice: field(item, sel.Price),
		}
		for name, query := range sel.Fields {
			rec[name] = field(item, query)
		}
		records = append(records, rec)
	})
	return records, nil
}

func field(item *goquery.Selection, query string) models.Value {
	if query == "" {
		return models.Null()
	}

	attr := ""
	if i := strings.LastIndex(query, "@"); i > 0 {
		query, attr = query[:i], query[i+1:]
	}

	sub := item.Find(query).First()
	if sub.Length() == 0 {
		return models.Null()
	}

	var text string
	if attr != "" {
		v, ok := sub.Attr(attr)
		if !ok {
			return models.Null()
		}
		text = v
	} else {
		text = sub.Text()
	}

	text = utils.NormaliseString(text)
	if text == "" {
		return models.Null()
	}
	return models.Text(text)
}
