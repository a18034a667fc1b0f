package dto

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/cesargomez89/quarry/internal/constants"
)

type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalItems  int  `json:"total_items"`
	PageSize    int  `json:"page_size"`
	HasPrev     bool `json:"has_prev"`
	PrevPage    int  `json:"prev_page,omitempty"`
	HasNext     bool `json:"has_next"`
	NextPage    int  `json:"next_page,omitempty"`
}

func NewPagination(page, pageSize, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	p := &Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		PageSize:    pageSize,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}
	if p.HasPrev {
		p.PrevPage = min(page-1, totalPages)
	}
	if p.HasNext {
		p.NextPage = page + 1
	}
	return p
}

// ParsePage reads page and page_size from a query string. Missing values
// default to the first page and the default page size.
func ParsePage(values url.Values) (page, pageSize int, errs []ValidationError) {
	page, pageSize = 1, constants.DefaultPageSize
	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: "page", Message: "must be a number"})
		} else {
			page = n
		}
	}
	if raw := values.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: "page_size", Message: "must be a number"})
		} else {
			pageSize = n
		}
	}
	return page, pageSize, errs
}

func validatePage(page, pageSize int) []ValidationError {
	var errs []ValidationError
	if page < 1 {
		errs = append(errs, ValidationError{Field: "page", Message: "must be at least 1"})
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		errs = append(errs, ValidationError{Field: "page_size", Message: fmt.Sprintf("must be between 1 and %d", constants.MaxPageSize)})
	}
	return errs
}
