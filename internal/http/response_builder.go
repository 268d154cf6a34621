// This file implements a builder for JSON responses. Mutating responses
// also carry an HX-Trigger header so HTMX front ends can refresh the
// affected period and show a notification.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"rateio/internal/core"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerLedgerChanged tells clients which period to reload.
func (b *ResponseBuilder) TriggerLedgerChanged(p core.Period) *ResponseBuilder {
	return b.Trigger("ledger:changed", map[string]any{"period": p.Key(), "year": p.Year, "month": int(p.Month)})
}

func (b *ResponseBuilder) TriggerOwnersChanged() *ResponseBuilder {
	return b.Trigger("owners:changed", struct{}{})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

func (b *ResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *ResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *ResponseBuilder) TriggerSuccessNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

func (b *ResponseBuilder) TriggerErrorNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value to encode as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A body that fails to encode becomes a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	var payload []byte
	if b.body != nil {
		var err error
		payload, err = json.Marshal(b.body)
		if err != nil {
			b.statusCode = http.StatusInternalServerError
			payload = []byte(`{"error":"failed to encode response"}`)
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	if payload != nil {
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(b.statusCode)
	if payload != nil {
		_, _ = w.Write(append(payload, '\n'))
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse creates a JSON error response with an error notification.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		TriggerErrorNotification(message).
		JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ErrorFor maps a domain error to its response: validation 422, missing
// record 404, bad period 400, anything else 500 with a generic message.
func ErrorFor(err error) *ResponseBuilder {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := UnprocessableEntityError("Dados inválidos")
		return resp.JSON(errorBody{Error: err.Error(), Fields: verr.Fields})
	case errors.Is(err, core.ErrValidation):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Registro não encontrado")
	case errors.Is(err, core.ErrInvalidPeriod):
		return BadRequestError(err.Error())
	default:
		return InternalServerError("Erro interno")
	}
}
