package quality

import (
	"testing"

	"github.com/cesargomez89/quarry/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"613-555-1234", "+16135551234"},
		{"(613) 555-1234", "+16135551234"},
		{"1-613-555-1234", "+16135551234"},
		{"+1 613 555 1234", "+16135551234"},
		{"+44 20 7946 0958", "+442079460958"},
		{"555-1234", "555-1234"},
		{"", ""},
		{"call us", "call us"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "https://example.com"},
		{"http://example.com/a", "https://example.com/a"},
		{"https://example.com", "https://example.com"},
		{"//cdn.example.com", "https://cdn.example.com"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeBusiness(t *testing.T) {
	b := domain.Business{
		Name:               "  Corner Cafe ",
		Phone:              "(416) 555-0100",
		InternationalPhone: "+1 416-555-0100",
		Website:            "http://cafe.example.com",
	}
	Normalize(&b)

	if b.Name != "Corner Cafe" {
		t.Errorf("name = %q", b.Name)
	}
	if b.Phone != "+14165550100" || b.InternationalPhone != "+14165550100" {
		t.Errorf("phones = %q, %q", b.Phone, b.InternationalPhone)
	}
	if b.Website != "https://cafe.example.com" {
		t.Errorf("website = %q", b.Website)
	}
}
