package domain

import (
	"strings"
	"time"
)

type QueryStatus string

const (
	QueryStatusPending  QueryStatus = "pending"
	QueryStatusQueued   QueryStatus = "queued"
	QueryStatusRunning  QueryStatus = "running"
	QueryStatusComplete QueryStatus = "complete"
	QueryStatusError    QueryStatus = "error"
	QueryStatusPaused   QueryStatus = "paused"
)

// Valid reports whether s is one of the known query statuses.
func (s QueryStatus) Valid() bool {
	switch s {
	case QueryStatusPending, QueryStatusQueued, QueryStatusRunning,
		QueryStatusComplete, QueryStatusError, QueryStatusPaused:
		return true
	}
	return false
}

// BaseTermStats are derived from the child queries of a base term and are
// never authoritative on their own.
type BaseTermStats struct {
	Total    int `json:"total_queries"`
	Pending  int `json:"pending_queries"`
	Queued   int `json:"queued_queries"`
	Running  int `json:"running_queries"`
	Paused   int `json:"paused_queries"`
	Complete int `json:"complete_queries"`
	Error    int `json:"error_queries"`
}

// ComputeStats counts queries per status. Total is always the sum of the
// per-status counts.
func ComputeStats(queries []*LocalQuery) BaseTermStats {
	var s BaseTermStats
	for _, q := range queries {
		switch q.Status {
		case QueryStatusQueued:
			s.Queued++
		case QueryStatusRunning:
			s.Running++
		case QueryStatusPaused:
			s.Paused++
		case QueryStatusComplete:
			s.Complete++
		case QueryStatusError:
			s.Error++
		default:
			s.Pending++
		}
	}
	s.Total = s.Pending + s.Queued + s.Running + s.Paused + s.Complete + s.Error
	return s
}

// BaseTerm is a reusable search phrase combined with locations to form queries.
type BaseTerm struct {
	ID        string        `json:"id"`
	Term      string        `json:"term"`
	Category  string        `json:"category,omitempty"`
	Stats     BaseTermStats `json:"stats"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// LocationTuple is one concrete city resolved from the location catalog.
type LocationTuple struct {
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
}

// QueryKey identifies a local query. No two stored queries share a key.
type QueryKey struct {
	Term     string
	City     string
	Province string
	Country  string
}

func NewQueryKey(term string, loc LocationTuple) QueryKey {
	return QueryKey{Term: term, City: loc.City, Province: loc.Province, Country: loc.Country}
}

// Keyword returns the text sent to the places search.
func Keyword(term, city string) string {
	return strings.TrimSpace(term + " " + city)
}

// LocalQuery is a concrete (term, city, province, country) search job.
type LocalQuery struct { //nolint:govet // field ordering prioritizes readability over memory alignment
	ID              string      `json:"id"`
	BaseTermID      string      `json:"base_term_id,omitempty"`
	Term            string      `json:"term"`
	Keyword         string      `json:"keyword"`
	City            string      `json:"city"`
	Province        string      `json:"province,omitempty"`
	Country         string      `json:"country,omitempty"`
	Status          QueryStatus `json:"status"`
	Error           *string     `json:"error,omitempty"`
	ResultCount     *int        `json:"result_count,omitempty"`
	VersionsCount   int         `json:"versions_count"`
	LatestVersionID string      `json:"latest_version_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	LastRunAt       *time.Time  `json:"last_run_at,omitempty"`
}

func (q *LocalQuery) Key() QueryKey {
	return QueryKey{Term: q.Term, City: q.City, Province: q.Province, Country: q.Country}
}

// QueryVersion is an immutable snapshot of extraction results for a query.
type QueryVersion struct {
	ID            string     `json:"id"`
	QueryID       string     `json:"query_id"`
	VersionNumber int        `json:"version_number"`
	BusinessCount int        `json:"business_count"`
	IsLatest      bool       `json:"is_latest"`
	Published     bool       `json:"published"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
}

// Business is a normalized listing returned by the places provider.
type Business struct { //nolint:govet // field ordering prioritizes readability over memory alignment
	PlaceID              string   `json:"place_id"`
	Name                 string   `json:"business_name"`
	StreetAddress        string   `json:"street_address,omitempty"`
	City                 string   `json:"city,omitempty"`
	ProvinceState        string   `json:"province_state,omitempty"`
	PostalCode           string   `json:"postal_code,omitempty"`
	Country              string   `json:"country,omitempty"`
	FullAddress          string   `json:"full_address,omitempty"`
	Phone                string   `json:"phone,omitempty"`
	InternationalPhone   string   `json:"international_phone,omitempty"`
	Website              string   `json:"website,omitempty"`
	GoogleMapsURL        string   `json:"google_maps_url,omitempty"`
	Rating               *float64 `json:"rating,omitempty"`
	UserRatingCount      *int     `json:"user_rating_count,omitempty"`
	PriceLevel           string   `json:"price_level,omitempty"`
	Hours                string   `json:"hours,omitempty"`
	Categories           string   `json:"categories,omitempty"`
	BusinessStatus       string   `json:"business_status,omitempty"`
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
	PhotoURL             string   `json:"photo_url,omitempty"`
	Delivery             *bool    `json:"delivery,omitempty"`
	DineIn               *bool    `json:"dine_in,omitempty"`
	Takeout              *bool    `json:"takeout,omitempty"`
	Reservable           *bool    `json:"reservable,omitempty"`
	ServesBreakfast      *bool    `json:"serves_breakfast,omitempty"`
	ServesLunch          *bool    `json:"serves_lunch,omitempty"`
	ServesDinner         *bool    `json:"serves_dinner,omitempty"`
	ServesBeer           *bool    `json:"serves_beer,omitempty"`
	ServesWine           *bool    `json:"serves_wine,omitempty"`
	WheelchairAccessible *bool    `json:"wheelchair_accessible,omitempty"`
	GooglePosition       int      `json:"google_position"`
	CustomPosition       int      `json:"custom_position"`
	SearchQuery          string   `json:"search_query,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// VersionBusiness is a business stored under a specific version.
type VersionBusiness struct {
	ID        string `json:"id"`
	QueryID   string `json:"query_id"`
	VersionID string `json:"version_id"`
	Business
}

func VersionBusinessID(versionID, placeID string) string {
	return versionID + ":" + placeID
}
