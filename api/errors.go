package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"legalrag/embeddings"
	"legalrag/llm"
	"legalrag/retrieval"
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{Code: code, Message: msg}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// ErrorHandler maps pipeline errors onto HTTP responses. Failures are
// non-fatal to the session; the client can retry the next turn.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}

	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	return c.Status(statusFor(err)).JSON(NewError(statusFor(err), err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, retrieval.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, embeddings.ErrEmbedding), errors.Is(err, llm.ErrGeneration):
		return fiber.StatusBadGateway
	case errors.Is(err, retrieval.ErrDimensionMismatch), errors.Is(err, retrieval.ErrHistorySerialization):
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}
