package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

type messageResponse struct {
	Message string `json:"message"`
}

// shortenRequest is the body of POST /api/v1/shorten.
type shortenRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

type shortenResponse struct {
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func toShortenResponse(url *entity.URL, shortURL string) shortenResponse {
	return shortenResponse{
		ShortCode:   url.ShortCode,
		ShortURL:    shortURL,
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
	}
}

type clickResponse struct {
	ClickedAt time.Time `json:"clicked_at"`
	IPAddress *string   `json:"ip_address"`
	UserAgent *string   `json:"user_agent"`
	Referer   *string   `json:"referer"`
}

// urlStatsResponse is the body of GET /api/v1/stats/{shortCode}. Missing
// visit metadata is rendered as null.
type urlStatsResponse struct {
	ShortCode    string          `json:"short_code"`
	OriginalURL  string          `json:"original_url"`
	CreatedAt    time.Time       `json:"created_at"`
	ClickCount   int64           `json:"click_count"`
	RecentClicks []clickResponse `json:"recent_clicks"`
}

func toURLStatsResponse(stats *entity.URLStats) urlStatsResponse {
	clicks := make([]clickResponse, 0, len(stats.RecentClicks))
	for _, c := range stats.RecentClicks {
		clicks = append(clicks, clickResponse{
			ClickedAt: c.ClickedAt,
			IPAddress: nullable(c.IPAddress),
			UserAgent: nullable(c.UserAgent),
			Referer:   nullable(c.Referer),
		})
	}

	return urlStatsResponse{
		ShortCode:    stats.ShortCode,
		OriginalURL:  stats.OriginalURL,
		CreatedAt:    stats.CreatedAt,
		ClickCount:   stats.ClickCount,
		RecentClicks: clicks,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse is the envelope of every failed API call.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	invalidLimitResponse = errorResponse{
		Status:  statusError,
		Message: "limit must be a positive integer",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	generationExhaustedResponse = errorResponse{
		Status:  statusError,
		Message: "could not allocate a short code, try again",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "http_url", "url":
		return "must be an absolute http or https url"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
