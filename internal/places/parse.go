package places

import (
	"net/url"
	"strings"

	"github.com/cesargomez89/quarry/internal/domain"
)

type localizedText struct {
	Text string `json:"text"`
}

type addressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// placeDetails mirrors the subset of the place resource we request.
type placeDetails struct { //nolint:govet // mirrors the API field order
	ID                       string             `json:"id"`
	DisplayName              localizedText      `json:"displayName"`
	FormattedAddress         string             `json:"formattedAddress"`
	AddressComponents        []addressComponent `json:"addressComponents"`
	NationalPhoneNumber      string             `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string             `json:"internationalPhoneNumber"`
	WebsiteURI               string             `json:"websiteUri"`
	GoogleMapsURI            string             `json:"googleMapsUri"`
	Rating                   *float64           `json:"rating"`
	UserRatingCount          *int               `json:"userRatingCount"`
	PriceLevel               string             `json:"priceLevel"`
	RegularOpeningHours      *struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
	Types          []string `json:"types"`
	BusinessStatus string   `json:"businessStatus"`
	Location       *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Photos []struct {
		Name string `json:"name"`
	} `json:"photos"`
	Delivery             *bool `json:"delivery"`
	DineIn               *bool `json:"dineIn"`
	Takeout              *bool `json:"takeout"`
	Reservable           *bool `json:"reservable"`
	ServesBreakfast      *bool `json:"servesBreakfast"`
	ServesLunch          *bool `json:"servesLunch"`
	ServesDinner         *bool `json:"servesDinner"`
	ServesBeer           *bool `json:"servesBeer"`
	ServesWine           *bool `json:"servesWine"`
	AccessibilityOptions *struct {
		WheelchairAccessibleEntrance *bool `json:"wheelchairAccessibleEntrance"`
	} `json:"accessibilityOptions"`
}

func (p *placeDetails) toBusiness(baseURL string) *domain.Business {
	b := &domain.Business{
		PlaceID:            p.ID,
		Name:               p.DisplayName.Text,
		FullAddress:        p.FormattedAddress,
		Phone:              p.NationalPhoneNumber,
		InternationalPhone: p.InternationalPhoneNumber,
		Website:            p.WebsiteURI,
		GoogleMapsURL:      p.GoogleMapsURI,
		Rating:             p.Rating,
		UserRatingCount:    p.UserRatingCount,
		PriceLevel:         p.PriceLevel,
		Categories:         strings.Join(p.Types, ", "),
		BusinessStatus:     p.BusinessStatus,
		Delivery:           p.Delivery,
		DineIn:             p.DineIn,
		Takeout:            p.Takeout,
		Reservable:         p.Reservable,
		ServesBreakfast:    p.ServesBreakfast,
		ServesLunch:        p.ServesLunch,
		ServesDinner:       p.ServesDinner,
		ServesBeer:         p.ServesBeer,
		ServesWine:         p.ServesWine,
	}

	var number, route string
	for _, c := range p.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "street_number":
				number = c.LongText
			case "route":
				route = c.LongText
			case "locality":
				b.City = c.LongText
			case "administrative_area_level_1":
				b.ProvinceState = c.ShortText
			case "postal_code":
				b.PostalCode = c.LongText
			case "country":
				b.Country = c.ShortText
			}
		}
	}
	b.StreetAddress = strings.TrimSpace(number + " " + route)

	if p.RegularOpeningHours != nil {
		b.Hours = strings.Join(p.RegularOpeningHours.WeekdayDescriptions, " | ")
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		b.Latitude, b.Longitude = &lat, &lng
	}
	if p.AccessibilityOptions != nil {
		b.WheelchairAccessible = p.AccessibilityOptions.WheelchairAccessibleEntrance
	}
	if len(p.Photos) > 0 && p.Photos[0].Name != "" {
		b.PhotoURL = photoURL(baseURL, p.Photos[0].Name)
	}
	return b
}

// photoURL points at the media endpoint for a photo resource. The API key is
// left out so it never ends up in stored records or exports.
func photoURL(baseURL, name string) string {
	q := url.Values{}
	q.Set("maxHeightPx", "400")
	q.Set("maxWidthPx", "400")
	return baseURL + "/" + name + "/media?" + q.Encode()
}
