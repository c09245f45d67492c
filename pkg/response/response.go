package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/logger"
)

// GenericFailureMessage is the only message a client sees for a service
// failure.
const GenericFailureMessage = "Something went wrong, please try again later"

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func write(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("[http] encoding response failed", "error", err)
	}
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// SuccessMessage sends a successful response carrying only a message.
func SuccessMessage(w http.ResponseWriter, message string, data interface{}) {
	write(w, http.StatusOK, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, code, message string) {
	write(w, statusCode, ErrorResponse{
		Success:   false,
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, errors.ErrCodeInvalidRequest, message)
}

// NotFound sends a 404 not found response
func NotFound(w http.ResponseWriter, code, message string) {
	Error(w, http.StatusNotFound, code, message)
}

// FromError maps err onto the envelope by its kind. Service failures are
// logged and answered with a generic message.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	be := errors.AsBusinessError(err)

	switch be.Kind {
	case errors.KindValidation:
		Error(w, http.StatusBadRequest, be.Code, be.Message)
	case errors.KindNotFound:
		Error(w, http.StatusNotFound, be.Code, be.Message)
	case errors.KindConflict:
		Error(w, http.StatusConflict, be.Code, be.Message)
	default:
		logger.Error("[http] request failed", "method", r.Method, "path", r.URL.Path, "code", be.Code, "error", err)
		Error(w, http.StatusInternalServerError, be.Code, GenericFailureMessage)
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &Recorder{ResponseWriter: w, StatusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		logger.Info("[http] request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.StatusCode,
			"duration", time.Since(start).String(),
		)
	})
}

// Recorder captures the status code written by a handler.
type Recorder struct {
	http.ResponseWriter
	StatusCode int
}

func (rec *Recorder) WriteHeader(statusCode int) {
	rec.StatusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}
