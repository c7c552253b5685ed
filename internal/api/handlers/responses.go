package handlers

import "example.com/disasterwatch/services/alerts/internal/repositories"

// Pagination describes one page of a listing
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NewPagination computes the page window metadata for a listing
func NewPagination(filter repositories.AlertFilter, total int64) Pagination {
	limit := int64(filter.Limit)
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return Pagination{
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// ListResponse is the envelope for paginated listings
type ListResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// DataResponse is the envelope for single-object and unpaginated results
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the uniform failure envelope
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
