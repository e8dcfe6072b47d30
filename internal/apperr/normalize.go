package apperr

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

// transportDownMarkers — фрагменты сообщений, по которым транспортная ошибка
// распознаётся как недоступность удалённого сервиса.
var transportDownMarkers = []string{
	"out of available brokers",
	"connection refused",
	"no subscribers",
	"broker not connected",
}

// Normalize приводит произвольную ошибку к конверту AppError.
// context идентифицирует обработчик, в котором ошибка была поймана.
// Классификация выполняется в порядке приоритета:
//  1. уже сформированный AppError — пропускается как есть;
//  2. доменные ошибки (not found, бизнес-правила) — типовые конверты;
//  3. транспортная недоступность — 503 SERVICE_UNAVAILABLE;
//  4. ошибка валидации входа — 400 с details из сообщений валидатора;
//  5. всё прочее — 500 INTERNAL_SERVER_ERROR с диагностикой в details.
func Normalize(err error, context string) *AppError {
	now := time.Now().UTC()

	var app *AppError
	if errors.As(err, &app) {
		if app.Context == "" {
			app.Context = context
		}
		if app.Timestamp.IsZero() {
			app.Timestamp = now
		}
		return app
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return &AppError{
			StatusCode: http.StatusNotFound,
			Code:       CodeNotFound,
			Message:    err.Error(),
			Context:    context,
			Timestamp:  now,
		}
	case errors.Is(err, domain.ErrProductNotFound):
		return &AppError{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       CodeUnprocessable,
			Message:    err.Error(),
			Context:    context,
			Timestamp:  now,
		}
	case errors.Is(err, domain.ErrUpstreamUnavailable) || isTransportDown(err):
		return &AppError{
			StatusCode: http.StatusServiceUnavailable,
			Code:       CodeServiceUnavailable,
			Message:    "required microservice is unavailable or there is no connection",
			Context:    context,
			Timestamp:  now,
		}
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return &AppError{
			StatusCode: http.StatusBadRequest,
			Code:       codeForStatus(http.StatusBadRequest),
			Message:    validation.Error(),
			Details:    validation.Messages,
			Context:    context,
			Timestamp:  now,
		}
	}

	message := "internal server error"
	var details interface{}
	if err != nil {
		message = err.Error()
		details = err.Error()
	}
	return &AppError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalServerError,
		Message:    message,
		Details:    details,
		Context:    context,
		Timestamp:  now,
	}
}

func isTransportDown(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transportDownMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
