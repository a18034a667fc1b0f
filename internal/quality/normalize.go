package quality

import (
	"strings"
	"unicode"

	"github.com/cesargomez89/quarry/internal/domain"
)

// NormalizePhone rewrites North American numbers to E.164 (+1XXXXXXXXXX).
// International numbers written with a leading + keep their digits. Anything
// else is returned unchanged.
func NormalizePhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return phone
	}

	hasPlus := strings.HasPrefix(trimmed, "+")
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, trimmed)

	switch {
	case digits == "":
		return phone
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	case hasPlus && len(digits) >= 10:
		return "+" + digits
	default:
		return phone
	}
}

// NormalizeURL makes sure a website address uses https.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "https://"):
		return u
	case strings.HasPrefix(u, "http://"):
		return "https://" + strings.TrimPrefix(u, "http://")
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	default:
		return "https://" + u
	}
}

// Normalize cleans phone numbers and the website of b in place.
func Normalize(b *domain.Business) {
	if b.Phone != "" {
		b.Phone = NormalizePhone(b.Phone)
	}
	if b.InternationalPhone != "" {
		b.InternationalPhone = NormalizePhone(b.InternationalPhone)
	}
	if b.Website != "" {
		b.Website = NormalizeURL(b.Website)
	}
	b.Name = strings.TrimSpace(b.Name)
}
