// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort            = "8080"
	DefaultDBPath          = "quarry.db"
	DefaultStoreDriver     = "sqlite"
	DefaultMongoURI        = "mongodb://localhost:27017"
	DefaultMongoDatabase   = "quarry"
	DefaultPlacesURL       = "https://places.googleapis.com/v1"
	DefaultMaxResults      = 20
	DefaultRequestDelay    = 2 * time.Second
	DefaultBatchSize       = 500
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultRetryCount      = 3
	DefaultRetryBase       = 1 * time.Second
	DefaultUsername        = "quarry"
	DefaultDetailsCacheTTL = 7 * 24 * time.Hour
	DefaultShutdownTimeout = 10 * time.Second
)

// Store drivers
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// MockAPIKey selects the in-process mock provider instead of the real API.
const MockAPIKey = "mock"

// Limits
const (
	// MaxBatchSize is the hard ceiling on documents written per batch.
	MaxBatchSize      = 500
	// MaxResultsLimit is the largest page the places search accepts.
	MaxResultsLimit   = 20
	// SearchCallsPerJob is the number of search requests made for one query.
	SearchCallsPerJob = 1
	DefaultPageSize   = 50
	MaxPageSize       = 500
)

// Collections
const (
	BaseTermsCollection         = "base_terms"
	QueriesCollection           = "queries"
	VersionsCollection          = "versions"
	VersionBusinessesCollection = "version_businesses"
	BusinessesCollection        = "businesses"
	PlaceCacheCollection        = "place_cache"
)

// Location selection wire values
const (
	SelectAll = "ALL"
)

// Quality thresholds
const (
	CompleteRecordScore = 80.0
	ExcellentScore      = 90.0
	GoodScore           = 70.0
	FairScore           = 50.0
)

// Placeholder written by upstream tools for a missing value.
const NotAvailable = "N/A"

// Sort orders for version businesses
const (
	SortByGoogle = "google_position"
	SortByCustom = "custom_position"
)

// MIME Types
const (
	MimeTypeJSON = "application/json"
	MimeTypeCSV  = "text/csv"
)

// HTTP Status Codes
const (
	StatusOK                 = 200
	StatusBadRequest         = 400
	StatusNotFound           = 404
	StatusConflict           = 409
	StatusInternalError      = 500
	StatusServiceUnavailable = 503
)

// UI/UX
const (
	WatchRefreshInterval = 2 * time.Second
)
