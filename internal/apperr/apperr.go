// Пакет apperr определяет единый конверт ошибок, который сервис возвращает
// вызывающим по шине, и нормализацию произвольных ошибок в этот конверт.
package apperr

import (
	"fmt"
	"net/http"
	"time"
)

// AppError — конверт ошибки, видимый на проводе. Любая ошибка запроса/ответа
// доходит до вызывающего только в этой форме.
type AppError struct {
	StatusCode int         `json:"statusCode"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Context    string      `json:"context"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Error реализует error, чтобы конверт можно было пробрасывать по обычным каналам.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Коды ошибок конверта.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeUnprocessable       = "UNPROCESSABLE_ENTITY"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// codeForStatus — фиксированная таблица статус → код конверта.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternalServerError
	}
}

// NotFound создаёт 404-ошибку для отсутствующего ресурса.
func NotFound(message string) *AppError {
	return &AppError{
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}
}

// Unprocessable создаёт 422-ошибку для нарушений бизнес-правил.
func Unprocessable(message string) *AppError {
	return &AppError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       CodeUnprocessable,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}
}

// Unavailable создаёт 503-ошибку: удалённый сервис недоступен.
func Unavailable(message string) *AppError {
	return &AppError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       CodeServiceUnavailable,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}
}

// ValidationError несёт структурные замечания к входному payload.
// Слой привязки DTO превращает ошибки валидатора в этот тип, чтобы
// нормализация не зависела от пакета валидации.
type ValidationError struct {
	Messages []string
}

// Error реализует error.
func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Messages[0]
}
