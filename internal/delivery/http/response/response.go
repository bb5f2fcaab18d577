package response

import (
	"encoding/json"
	"net/http"

	"github.com/Pesokrava/movie_reviews/internal/domain"
	"github.com/Pesokrava/movie_reviews/internal/notify"
)

// Envelope is the body of every successful response
type Envelope struct {
	Success       bool                  `json:"success"`
	Data          any                   `json:"data,omitempty"`
	Persistence   domain.Persistence    `json:"persistence,omitempty"`
	Notifications []domain.Notification `json:"notifications,omitempty"`
}

// ErrorBody is the body of every failed response
type ErrorBody struct {
	Error         string                `json:"error"`
	Notifications []domain.Notification `json:"notifications,omitempty"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes an error response with the notifications raised so far
func Error(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	JSON(w, statusCode, ErrorBody{
		Error:         message,
		Notifications: collected(r),
	})
}

// Success writes a success response with data
func Success(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, http.StatusOK, Envelope{
		Success:       true,
		Data:          data,
		Notifications: collected(r),
	})
}

// Created writes a created response
func Created(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, http.StatusCreated, Envelope{
		Success:       true,
		Data:          data,
		Notifications: collected(r),
	})
}

// Mutation writes the outcome of a review write, tagging whether it persisted remotely
func Mutation(w http.ResponseWriter, r *http.Request, statusCode int, result domain.Result) {
	JSON(w, statusCode, Envelope{
		Success:       true,
		Data:          result.Review,
		Persistence:   result.Persistence,
		Notifications: collected(r),
	})
}

// NoContent writes a no content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func collected(r *http.Request) []domain.Notification {
	if r == nil {
		return nil
	}
	if c, ok := notify.CollectorFrom(r.Context()); ok {
		return c.Items()
	}
	return nil
}
