package dto

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/domain"
)

const (
	maxTermLength     = 200
	maxCategoryLength = 100
	maxCityLength     = 120
	maxQueueIDs       = 5000
)

var countryCodeRegex = regexp.MustCompile(`^[A-Z]{2}$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func validateRequired(field, value string) []ValidationError {
	if strings.TrimSpace(value) == "" {
		return []ValidationError{{Field: field, Message: "is required"}}
	}
	return nil
}

func validateMaxLength(field, value string, max int) []ValidationError {
	if utf8.RuneCountInString(value) > max {
		return []ValidationError{{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}}
	}
	return nil
}

func validateCountryCode(field, code string) []ValidationError {
	if code == "" || code == constants.SelectAll || countryCodeRegex.MatchString(code) {
		return nil
	}
	return []ValidationError{{Field: field, Message: "must be a two-letter uppercase country code"}}
}

func validateNoBlank(field string, values []string) []ValidationError {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return []ValidationError{{Field: field, Message: "must not contain blank values"}}
		}
	}
	return nil
}

func validateStatus(status string) []ValidationError {
	if status != "" && !domain.QueryStatus(status).Valid() {
		return []ValidationError{{Field: "status", Message: "must be one of: pending, queued, running, complete, error, paused"}}
	}
	return nil
}

func validateSortBy(sortBy string) []ValidationError {
	switch sortBy {
	case "", constants.SortByGoogle, constants.SortByCustom:
		return nil
	}
	return []ValidationError{{Field: "sort_by", Message: fmt.Sprintf("must be %s or %s", constants.SortByGoogle, constants.SortByCustom)}}
}

func validatePosition(position *int) []ValidationError {
	if position == nil {
		return []ValidationError{{Field: "position", Message: "is required"}}
	}
	if *position < 1 {
		return []ValidationError{{Field: "position", Message: "must be at least 1"}}
	}
	return nil
}

func validateIDs(ids []string) []ValidationError {
	if len(ids) == 0 {
		return []ValidationError{{Field: "query_ids", Message: "is required"}}
	}
	if len(ids) > maxQueueIDs {
		return []ValidationError{{Field: "query_ids", Message: fmt.Sprintf("must contain at most %d ids", maxQueueIDs)}}
	}
	return validateNoBlank("query_ids", ids)
}
