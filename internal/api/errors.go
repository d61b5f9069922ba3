package api

import (
	"errors"
	"net/http"

	"tabsink/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var unreadable *domain.UnreadableFormatError
	var empty *domain.EmptyDatasetError
	var badShape *domain.UnexpectedResponseShapeError
	var schema *domain.SchemaError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unreadable), errors.As(err, &empty):
		return http.StatusUnprocessableEntity
	case errors.As(err, &badShape):
		return http.StatusBadGateway
	case errors.As(err, &schema):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
