// Package quality scores how complete a set of business records is and finds
// repeated places. Everything here is a pure function of its input.
package quality

import (
	"math"
	"strings"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/domain"
)

// Checklist fields, in report order.
const (
	FieldName        = "business_name"
	FieldFullAddress = "full_address"
	FieldPhone       = "phone"
	FieldWebsite     = "website"
	FieldRating      = "rating"
	FieldHours       = "hours"
)

var Checklist = []string{FieldName, FieldFullAddress, FieldPhone, FieldWebsite, FieldRating, FieldHours}

type Distribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

type DuplicateGroup struct {
	PlaceID string `json:"place_id"`
	Count   int    `json:"count"`
}

type Report struct {
	TotalRecords     int                `json:"total_records"`
	OverallScore     float64            `json:"overall_score"`
	FieldCompletion  map[string]float64 `json:"field_completion"`
	MissingFields    map[string]int     `json:"missing_fields"`
	Complete         int                `json:"complete"`
	Incomplete       int                `json:"incomplete"`
	Distribution     Distribution       `json:"score_distribution"`
	Duplicates       []DuplicateGroup   `json:"duplicates"`
	DuplicateRecords int                `json:"duplicate_records"`
}

func emptyReport() Report {
	r := Report{
		FieldCompletion: make(map[string]float64, len(Checklist)),
		MissingFields:   make(map[string]int, len(Checklist)),
		Duplicates:      []DuplicateGroup{},
	}
	for _, f := range Checklist {
		r.FieldCompletion[f] = 0
		r.MissingFields[f] = 0
	}
	return r
}

// Score builds the quality report for records. An empty input yields a zero
// report.
func Score(records []domain.Business) Report {
	r := emptyReport()
	r.TotalRecords = len(records)
	if len(records) == 0 {
		return r
	}

	var total float64
	for i := range records {
		present := Present(&records[i])
		filled := 0
		for _, f := range Checklist {
			if present[f] {
				filled++
			} else {
				r.MissingFields[f]++
			}
		}

		score := float64(filled) / float64(len(Checklist)) * 100
		total += score

		if score >= constants.CompleteRecordScore {
			r.Complete++
		} else {
			r.Incomplete++
		}
		switch {
		case score >= constants.ExcellentScore:
			r.Distribution.Excellent++
		case score >= constants.GoodScore:
			r.Distribution.Good++
		case score >= constants.FairScore:
			r.Distribution.Fair++
		default:
			r.Distribution.Poor++
		}
	}

	n := float64(len(records))
	for _, f := range Checklist {
		r.FieldCompletion[f] = round2(float64(len(records)-r.MissingFields[f]) / n)
	}
	r.OverallScore = round2(total / n)

	r.Duplicates = FindDuplicates(records)
	for _, g := range r.Duplicates {
		r.DuplicateRecords += g.Count
	}
	return r
}

// RecordScore is the completeness of a single record, 0 to 100.
func RecordScore(b *domain.Business) float64 {
	present := Present(b)
	filled := 0
	for _, f := range Checklist {
		if present[f] {
			filled++
		}
	}
	return round2(float64(filled) / float64(len(Checklist)) * 100)
}

// Present reports which checklist fields carry a value.
func Present(b *domain.Business) map[string]bool {
	return map[string]bool{
		FieldName:        filled(b.Name),
		FieldFullAddress: filled(b.FullAddress),
		FieldPhone:       filled(b.Phone),
		FieldWebsite:     filled(b.Website),
		FieldRating:      b.Rating != nil,
		FieldHours:       filled(b.Hours),
	}
}

func filled(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != constants.NotAvailable
}

// FindDuplicates groups records by place id and returns every group with more
// than one member, in order of first appearance. Records without a place id
// are ignored.
func FindDuplicates(records []domain.Business) []DuplicateGroup {
	counts := make(map[string]int)
	var order []string
	for i := range records {
		id := records[i].PlaceID
		if id == "" {
			continue
		}
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	groups := []DuplicateGroup{}
	for _, id := range order {
		if counts[id] > 1 {
			groups = append(groups, DuplicateGroup{PlaceID: id, Count: counts[id]})
		}
	}
	return groups
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
