package locations

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cesargomez89/quarry/internal/domain"
)

// gridCatalog builds a country with n provinces of m cities each.
func gridCatalog(t *testing.T, code string, n, m int) *Catalog {
	t.Helper()
	country := Country{Code: code, Name: code}
	for i := 0; i < n; i++ {
		p := Province{Code: fmt.Sprintf("P%02d", i)}
		for j := 0; j < m; j++ {
			p.Cities = append(p.Cities, fmt.Sprintf("City %d-%d", i, j))
		}
		country.Provinces = append(country.Provinces, p)
	}
	c, err := New([]Country{country})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if got := len(c.Provinces("CA")); got != 13 {
		t.Errorf("Expected 13 Canadian provinces and territories, got %d", got)
	}
	if len(c.Provinces("US")) == 0 {
		t.Error("Expected US states in catalog")
	}
	if cities := c.Cities("CA", "ON"); len(cities) != 20 || cities[0] != "Toronto" {
		t.Errorf("Unexpected Ontario cities: %v", cities)
	}
	if cities := c.Cities("US", "MO"); !contains(cities, "Lee's Summit") {
		t.Error("Expected quoted city names to survive YAML decoding")
	}
	if c.Cities("CA", "XX") != nil {
		t.Error("Expected nil for unknown province")
	}
	if c.Provinces("MX") != nil {
		t.Error("Expected nil for unknown country")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`countries:
  - code: GB
    name: United Kingdom
    provinces:
      - code: ENG
        name: England
        cities: [London, Leeds]
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := c.Estimate(Selection{Countries: All(), Provinces: All(), Cities: All()}); got != 2 {
		t.Errorf("Estimate() = %d, want 2", got)
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := c.Country("CA"); !ok {
		t.Error("Expected default catalog")
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"duplicate country", "countries:\n  - code: CA\n  - code: CA\n"},
		{"duplicate province", "countries:\n  - code: CA\n    provinces:\n      - code: ON\n      - code: ON\n"},
		{"missing code", "countries:\n  - name: Nowhere\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func tupleSet(tuples []domain.LocationTuple) map[domain.LocationTuple]bool {
	m := make(map[domain.LocationTuple]bool, len(tuples))
	for _, t := range tuples {
		m[t] = true
	}
	return m
}
