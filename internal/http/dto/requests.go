package dto

import (
	"strings"

	"github.com/cesargomez89/quarry/internal/app"
	"github.com/cesargomez89/quarry/internal/locations"
)

type CreateBaseTermRequest struct {
	Term     string `json:"term"`
	Category string `json:"category"`
}

func (r *CreateBaseTermRequest) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRequired("term", r.Term)...)
	errs = append(errs, validateMaxLength("term", r.Term, maxTermLength)...)
	errs = append(errs, validateMaxLength("category", r.Category, maxCategoryLength)...)
	return errs
}

// SelectionRequest is the wire form of a location selection. A level holding
// "ALL" selects every child of the levels above it.
type SelectionRequest struct {
	Countries []string `json:"countries"`
	Provinces []string `json:"provinces"`
	Cities    []string `json:"cities"`
}

func (r *SelectionRequest) Validate() []ValidationError {
	var errs []ValidationError
	for _, c := range r.Countries {
		if e := validateCountryCode("countries", c); len(e) > 0 {
			errs = append(errs, e...)
			break
		}
	}
	errs = append(errs, validateNoBlank("countries", r.Countries)...)
	errs = append(errs, validateNoBlank("provinces", r.Provinces)...)
	errs = append(errs, validateNoBlank("cities", r.Cities)...)
	return errs
}

func (r *SelectionRequest) ToSelection() locations.Selection {
	return locations.Selection{
		Countries: locations.ParseLevel(r.Countries),
		Provinces: locations.ParseLevel(r.Provinces),
		Cities:    locations.ParseLevel(r.Cities),
	}
}

type CreateQueryRequest struct {
	BaseTermID string `json:"base_term_id"`
	Term       string `json:"term"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Country    string `json:"country"`
}

func (r *CreateQueryRequest) Validate() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(r.BaseTermID) == "" {
		errs = append(errs, validateRequired("term", r.Term)...)
	}
	errs = append(errs, validateMaxLength("term", r.Term, maxTermLength)...)
	errs = append(errs, validateRequired("city", r.City)...)
	errs = append(errs, validateMaxLength("city", r.City, maxCityLength)...)
	errs = append(errs, validateCountryCode("country", r.Country)...)
	return errs
}

func (r *CreateQueryRequest) ToInput() app.CreateQueryInput {
	return app.CreateQueryInput{
		BaseTermID: strings.TrimSpace(r.BaseTermID),
		Term:       r.Term,
		City:       r.City,
		Province:   strings.TrimSpace(r.Province),
		Country:    strings.TrimSpace(r.Country),
	}
}

type PositionRequest struct {
	Position *int `json:"position"`
}

func (r *PositionRequest) Validate() []ValidationError {
	return validatePosition(r.Position)
}

type QueueIDsRequest struct {
	QueryIDs []string `json:"query_ids"`
}

func (r *QueueIDsRequest) Validate() []ValidationError {
	return validateIDs(r.QueryIDs)
}

type AddAllPendingRequest struct {
	BaseTermID string `json:"base_term_id"`
}

// ListQueriesParams are the query-string filters for the query list.
type ListQueriesParams struct {
	BaseTermID string
	Status     string
	Page       int
	PageSize   int
}

func (p *ListQueriesParams) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateStatus(p.Status)...)
	errs = append(errs, validatePage(p.Page, p.PageSize)...)
	return errs
}

type BusinessesParams struct {
	SortBy string
}

func (p *BusinessesParams) Validate() []ValidationError {
	return validateSortBy(p.SortBy)
}
