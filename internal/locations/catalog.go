// Package locations holds the static country/province/city catalog and expands
// location selections into concrete city tuples.
package locations

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type Province struct {
	Code   string   `yaml:"code" json:"code"`
	Name   string   `yaml:"name" json:"name"`
	Cities []string `yaml:"cities" json:"cities"`
}

type Country struct {
	Code      string     `yaml:"code" json:"code"`
	Name      string     `yaml:"name" json:"name"`
	Provinces []Province `yaml:"provinces" json:"provinces"`
}

// Catalog is an ordered, read-only tree of countries, provinces and cities.
type Catalog struct {
	countries []Country
	byCode    map[string]int
}

type catalogFile struct {
	Countries []Country `yaml:"countries"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(embeddedCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded location catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path returns Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and checks that codes are unique per level.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Countries)
}

// New builds a catalog from countries in display order.
func New(countries []Country) (*Catalog, error) {
	c := &Catalog{
		countries: countries,
		byCode:    make(map[string]int, len(countries)),
	}
	for i, country := range countries {
		if country.Code == "" {
			return nil, fmt.Errorf("country %d has no code", i)
		}
		if _, dup := c.byCode[country.Code]; dup {
			return nil, fmt.Errorf("duplicate country code %q", country.Code)
		}
		c.byCode[country.Code] = i

		seen := make(map[string]bool, len(country.Provinces))
		for _, p := range country.Provinces {
			if p.Code == "" {
				return nil, fmt.Errorf("country %s has a province without a code", country.Code)
			}
			if seen[p.Code] {
				return nil, fmt.Errorf("duplicate province code %s/%s", country.Code, p.Code)
			}
			seen[p.Code] = true
		}
	}
	return c, nil
}

// Countries returns every country in catalog order.
func (c *Catalog) Countries() []Country {
	return c.countries
}

func (c *Catalog) Country(code string) (Country, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Country{}, false
	}
	return c.countries[i], true
}

// Provinces returns the provinces of a country, or nil if the code is unknown.
func (c *Catalog) Provinces(country string) []Province {
	ct, ok := c.Country(country)
	if !ok {
		return nil
	}
	return ct.Provinces
}

// Cities returns the cities of a province, or nil if either code is unknown.
func (c *Catalog) Cities(country, province string) []string {
	for _, p := range c.Provinces(country) {
		if p.Code == province {
			return p.Cities
		}
	}
	return nil
}
