package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"web-scraper-app/models"
)

// Catalog lists the listing categories the dashboard knows about.
type Catalog struct {
	Categories []Category `yaml:"categories"`
}

// Category describes one dataset: where its files live, which columns are
// numeric, and how its pages are scraped.
type Category struct {
	Name             string          `yaml:"name"`
	Label            string          `yaml:"label"`
	RawPath          string          `yaml:"raw_path"`
	CleanedPath      string          `yaml:"cleaned_path"`
	DecimalSeparator string          `yaml:"decimal_separator"`
	DedupeKey        string          `yaml:"dedupe_key"`
	Columns          []NumericColumn `yaml:"columns"`
	Selectors        Selectors       `yaml:"selectors"`
}

// NumericColumn declares a column that needs text to number coercion.
// DropBelow/DropAbove, when set, discard values outside the open interval
// during cleaning.
type NumericColumn struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label"`
	Unit       string   `yaml:"unit"`
	Filterable bool     `yaml:"filterable"`
	Bins       int      `yaml:"bins"`
	DropBelow  *float64 `yaml:"drop_below"`
	DropAbove  *float64 `yaml:"drop_above"`
}

// Bounds returns the open cleaning interval, infinite on unset sides.
func (c NumericColumn) Bounds() (lower, upper float64, ok bool) {
	if c.DropBelow == nil && c.DropAbove == nil {
		return 0, 0, false
	}
	lower, upper = math.Inf(-1), math.Inf(1)
	if c.DropBelow != nil {
		lower = *c.DropBelow
	}
	if c.DropAbove != nil {
		upper = *c.DropAbove
	}
	return lower, upper, true
}

// Selectors are the CSS selectors used to extract listings from a page.
type Selectors struct {
	Item   string            `yaml:"item"`
	Title  string            `yaml:"title"`
	Price  string            `yaml:"price"`
	Fields map[string]string `yaml:"fields"`
}

// DefaultSelectors returns the generic listing selectors.
func DefaultSelectors() Selectors {
	return Selectors{Item: ".product-item", Title: ".title", Price: ".price"}
}

// Decimal returns the configured decimal separator, '.' by default.
func (c Category) Decimal() rune {
	if c.DecimalSeparator == "" {
		return '.'
	}
	return []rune(c.DecimalSeparator)[0]
}

// ColumnNames returns the declared numeric column names in order.
func (c Category) ColumnNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// DisplayLabel falls back to the name when no label is configured.
func (c Category) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

// Find looks a category up by name, case-insensitively.
func (c *Catalog) Find(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return Category{}, false
}

// Names returns the category names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// LoadCatalog reads the YAML catalog at path and resolves relative file paths
// against dataDir. A missing file yields the built-in catalog.
func LoadCatalog(path, dataDir string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cat := DefaultCatalog()
		cat.resolve(dataDir)
		return cat, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file at '%s': %w", path, err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
	}
	if len(cat.Categories) == 0 {
		return nil, fmt.Errorf("catalog %s declares no categories", path)
	}
	for i := range cat.Categories {
		c := &cat.Categories[i]
		if c.Name == "" {
			return nil, fmt.Errorf("catalog %s: category %d has no name", path, i)
		}
		if c.Selectors.Item == "" {
			c.Selectors = DefaultSelectors()
		}
		if len([]rune(c.DecimalSeparator)) > 1 {
			return nil, fmt.Errorf("catalog %s: category %s: decimal_separator must be one character", path, c.Name)
		}
	}
	cat.resolve(dataDir)
	return &cat, nil
}

func (c *Catalog) resolve(dataDir string) {
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.RawPath = resolvePath(dataDir, cat.RawPath)
		cat.CleanedPath = resolvePath(dataDir, cat.CleanedPath)
	}
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}

// DashboardColumns are the columns the dashboard renders for real-estate data.
func DashboardColumns() []NumericColumn {
	return []NumericColumn{
		{Name: models.ColumnPrix, Label: "Prix", Unit: "FCFA", Filterable: true, Bins: 30},
		{Name: models.ColumnNombrePieces, Label: "Nombre de pièces", Bins: 15},
		{Name: models.ColumnSuperficie, Label: "Superficie", Unit: "m²", Filterable: true, Bins: 30},
	}
}

// DefaultCatalog returns the CoinAfrique real-estate categories plus the
// ad-hoc scraping dataset.
func DefaultCatalog() *Catalog {
	zero := 0.0
	return &Catalog{Categories: []Category{
		{
			Name:        "appartements",
			Label:       "Appartements",
			RawPath:     "raw/appartements_coinafrique_WSc.csv",
			CleanedPath: "cleaned/appartement_coinafrique_bs.csv",
			Columns:     DashboardColumns(),
			Selectors:   DefaultSelectors(),
		},
		{
			Name:        "villas",
			Label:       "Villas",
			RawPath:     "raw/Villas_coinafrique_WSc.csv",
			CleanedPath: "cleaned/villas_coinafrique_bs.csv",
			Columns:     DashboardColumns(),
			Selectors:   DefaultSelectors(),
		},
		{
			Name:        "terrains",
			Label:       "Terrains",
			RawPath:     "raw/terrains_coinafrique_WSc.csv",
			CleanedPath: "cleaned/terrains_coinafrique_bs.csv",
			Columns:     DashboardColumns(),
			Selectors:   DefaultSelectors(),
		},
		{
			Name:        "scraped",
			Label:       "Données scrapées",
			RawPath:     "raw/scraped_data.csv",
			CleanedPath: "cleaned/scraped_data.csv",
			DedupeKey:   models.FieldTitle,
			Columns: []NumericColumn{
				{Name: models.FieldPrice, Label: "Prix", Unit: "FCFA", Filterable: true, Bins: 30, DropBelow: &zero},
			},
			Selectors: DefaultSelectors(),
		},
	}}
}
