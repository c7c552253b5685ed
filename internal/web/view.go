package web

import (
	"strings"

	"example.com/disasterwatch/services/alerts/internal/models"
)

// PageWindow is the pagination view state for the dashboard table
type PageWindow struct {
	CurrentPage int
	Total       int64
	TotalPages  int64
	PrevPage    int
	NextPage    int
	From        int64
	To          int64
}

// NewPageWindow derives the dashboard pagination window from the listing
// result
func NewPageWindow(page, limit int, total, totalPages int64) PageWindow {
	if totalPages < 1 {
		totalPages = 1
	}

	prev := page - 1
	if prev < 1 {
		prev = 1
	}
	next := page + 1
	if int64(next) > totalPages {
		next = int(totalPages)
	}

	from := int64(page-1)*int64(limit) + 1
	to := int64(page) * int64(limit)
	if to > total {
		to = total
	}
	if total == 0 {
		from = 0
		to = 0
	}

	return PageWindow{
		CurrentPage: page,
		Total:       total,
		TotalPages:  totalPages,
		PrevPage:    prev,
		NextPage:    next,
		From:        from,
		To:          to,
	}
}

// SeverityCounts are the summary-card buckets on the dashboard
type SeverityCounts struct {
	Severe   int
	Moderate int
	Minor    int
}

// CountSeverities tallies alerts into the lowercased severity buckets.
// Unknown severities fall outside every card.
func CountSeverities(alerts []models.Alert) SeverityCounts {
	var counts SeverityCounts
	for _, a := range alerts {
		switch strings.ToLower(a.Severity) {
		case models.SeveritySevere:
			counts.Severe++
		case models.SeverityModerate:
			counts.Moderate++
		case models.SeverityMinor:
			counts.Minor++
		}
	}
	return counts
}

// ReorderByCountry moves alerts matching the viewer's ISO3 country to
// the front, keeping relative order within both groups. An empty code
// leaves the slice untouched.
func ReorderByCountry(alerts []models.Alert, iso3 string) []models.Alert {
	if iso3 == "" || len(alerts) == 0 {
		return alerts
	}

	local := make([]models.Alert, 0, len(alerts))
	rest := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.ISO3 != nil && strings.EqualFold(*a.ISO3, iso3) {
			local = append(local, a)
		} else {
			rest = append(rest, a)
		}
	}
	if len(local) == 0 {
		return alerts
	}
	return append(local, rest...)
}
