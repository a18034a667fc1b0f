// Package export writes business records as CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/cesargomez89/quarry/internal/domain"
)

type column struct {
	header string
	value  func(b *domain.Business) string
}

var columns = []column{
	{"google_position", func(b *domain.Business) string { return strconv.Itoa(b.GooglePosition) }},
	{"custom_position", func(b *domain.Business) string { return strconv.Itoa(b.CustomPosition) }},
	{"place_id", func(b *domain.Business) string { return b.PlaceID }},
	{"business_name", func(b *domain.Business) string { return b.Name }},
	{"street_address", func(b *domain.Business) string { return b.StreetAddress }},
	{"city", func(b *domain.Business) string { return b.City }},
	{"province_state", func(b *domain.Business) string { return b.ProvinceState }},
	{"postal_code", func(b *domain.Business) string { return b.PostalCode }},
	{"country", func(b *domain.Business) string { return b.Country }},
	{"full_address", func(b *domain.Business) string { return b.FullAddress }},
	{"phone", func(b *domain.Business) string { return b.Phone }},
	{"international_phone", func(b *domain.Business) string { return b.InternationalPhone }},
	{"website", func(b *domain.Business) string { return b.Website }},
	{"google_maps_url", func(b *domain.Business) string { return b.GoogleMapsURL }},
	{"rating", func(b *domain.Business) string { return float(b.Rating) }},
	{"user_rating_count", func(b *domain.Business) string { return integer(b.UserRatingCount) }},
	{"price_level", func(b *domain.Business) string { return b.PriceLevel }},
	{"hours", func(b *domain.Business) string { return b.Hours }},
	{"categories", func(b *domain.Business) string { return b.Categories }},
	{"business_status", func(b *domain.Business) string { return b.BusinessStatus }},
	{"latitude", func(b *domain.Business) string { return float(b.Latitude) }},
	{"longitude", func(b *domain.Business) string { return float(b.Longitude) }},
	{"photo_url", func(b *domain.Business) string { return b.PhotoURL }},
	{"delivery", func(b *domain.Business) string { return boolean(b.Delivery) }},
	{"dine_in", func(b *domain.Business) string { return boolean(b.DineIn) }},
	{"takeout", func(b *domain.Business) string { return boolean(b.Takeout) }},
	{"reservable", func(b *domain.Business) string { return boolean(b.Reservable) }},
	{"serves_breakfast", func(b *domain.Business) string { return boolean(b.ServesBreakfast) }},
	{"serves_lunch", func(b *domain.Business) string { return boolean(b.ServesLunch) }},
	{"serves_dinner", func(b *domain.Business) string { return boolean(b.ServesDinner) }},
	{"serves_beer", func(b *domain.Business) string { return boolean(b.ServesBeer) }},
	{"serves_wine", func(b *domain.Business) string { return boolean(b.ServesWine) }},
	{"wheelchair_accessible", func(b *domain.Business) string { return boolean(b.WheelchairAccessible) }},
	{"search_query", func(b *domain.Business) string { return b.SearchQuery }},
}

// Header returns the column names in output order.
func Header() []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = c.header
	}
	return h
}

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, records []domain.Business) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for i := range records {
		for j, c := range columns {
			row[j] = c.value(&records[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func float(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func integer(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func boolean(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
