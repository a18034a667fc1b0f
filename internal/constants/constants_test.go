package constants

import (
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	if DefaultPort != "8080" {
		t.Errorf("Expected DefaultPort to be '8080', got '%s'", DefaultPort)
	}

	if DefaultDBPath != "quarry.db" {
		t.Errorf("Expected DefaultDBPath to be 'quarry.db', got '%s'", DefaultDBPath)
	}

	if DefaultStoreDriver != StoreSQLite {
		t.Errorf("Expected DefaultStoreDriver to be '%s', got '%s'", StoreSQLite, DefaultStoreDriver)
	}

	if DefaultPlacesURL != "https://places.googleapis.com/v1" {
		t.Errorf("Expected DefaultPlacesURL to be the Places API v1 base, got '%s'", DefaultPlacesURL)
	}
}

func TestBatchLimits(t *testing.T) {
	if MaxBatchSize != 500 {
		t.Errorf("Expected MaxBatchSize to be 500, got %d", MaxBatchSize)
	}

	if DefaultBatchSize > MaxBatchSize {
		t.Errorf("DefaultBatchSize %d exceeds MaxBatchSize %d", DefaultBatchSize, MaxBatchSize)
	}

	if DefaultMaxResults > MaxResultsLimit {
		t.Errorf("DefaultMaxResults %d exceeds MaxResultsLimit %d", DefaultMaxResults, MaxResultsLimit)
	}
}

func TestTimeouts(t *testing.T) {
	if DefaultRequestDelay != 2*time.Second {
		t.Errorf("Expected DefaultRequestDelay to be 2 seconds, got %v", DefaultRequestDelay)
	}

	if DefaultRetryBase != 1*time.Second {
		t.Errorf("Expected DefaultRetryBase to be 1 second, got %v", DefaultRetryBase)
	}
}

func TestCollections(t *testing.T) {
	collections := []string{
		BaseTermsCollection,
		QueriesCollection,
		VersionsCollection,
		VersionBusinessesCollection,
		BusinessesCollection,
		PlaceCacheCollection,
	}

	seen := make(map[string]bool)
	for _, c := range collections {
		if c == "" {
			t.Error("Collection constant should not be empty")
		}
		if seen[c] {
			t.Errorf("Collection %s declared twice", c)
		}
		seen[c] = true
	}
}

func TestQualityThresholds(t *testing.T) {
	if !(ExcellentScore > GoodScore && GoodScore > FairScore) {
		t.Errorf("Expected thresholds to be descending, got %v > %v > %v", ExcellentScore, GoodScore, FairScore)
	}

	if CompleteRecordScore != 80 {
		t.Errorf("Expected CompleteRecordScore to be 80, got %v", CompleteRecordScore)
	}
}

func TestHTTPStatusCodes(t *testing.T) {
	if StatusOK != 200 {
		t.Errorf("Expected StatusOK to be 200, got %d", StatusOK)
	}

	if StatusBadRequest != 400 {
		t.Errorf("Expected StatusBadRequest to be 400, got %d", StatusBadRequest)
	}

	if StatusConflict != 409 {
		t.Errorf("Expected StatusConflict to be 409, got %d", StatusConflict)
	}

	if StatusServiceUnavailable != 503 {
		t.Errorf("Expected StatusServiceUnavailable to be 503, got %d", StatusServiceUnavailable)
	}
}
