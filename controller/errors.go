package controller

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	auth "github.com/jobboard/go-auth"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries only a generic message. Validation failures also list
// the offending fields.
type ErrorDetail struct {
	Message  string                  `json:"message"`
	TextCode string                  `json:"text_code,omitempty"`
	Fields   errors.ValidationErrors `json:"fields,omitempty"`
}

// ErrorMiddleware renders errors returned further down the chain with
// NewErrorHandler. Register it with Use before creating groups.
func ErrorMiddleware(logger auth.Logger) router.MiddlewareFunc {
	handler := NewErrorHandler(logger)
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if err := c.Next(); err != nil {
				return handler(c, err)
			}
			return nil
		}
	}
}

// NewErrorHandler returns an error handler that answers with the status the
// error kind maps to and never exposes internal details.
func NewErrorHandler(logger auth.Logger) router.ErrorHandler {
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	return func(c router.Context, err error) error {
		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.JSON(fe.Code, ErrorBody{Error: ErrorDetail{Message: fe.Message}})
			}
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		switch {
		case auth.IsUnauthorized(err):
			logger.Debug("request %s %s: unauthorized", c.Method(), c.OriginalURL())
			return c.JSON(http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{
				Message:  "Unauthorized",
				TextCode: auth.TextCodeUnauthorized,
			}})

		case auth.IsForbidden(err):
			logger.Debug("request %s %s: forbidden", c.Method(), c.OriginalURL())
			return c.JSON(http.StatusForbidden, ErrorBody{Error: ErrorDetail{
				Message:  "Forbidden",
				TextCode: auth.TextCodeForbidden,
			}})

		case errors.Is(err, auth.ErrInvalidLogin):
			return c.JSON(http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{
				Message:  "Invalid identifier or password",
				TextCode: errors.TextCodeInvalidCredentials,
			}})

		case errors.IsValidation(err) || errors.IsCategory(err, errors.CategoryBadInput):
			return c.JSON(http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
				Message:  "Invalid request",
				TextCode: richErr.TextCode,
				Fields:   richErr.AllValidationErrors(),
			}})
		}

		logger.Error("request %s %s failed: %s %s",
			c.Method(), c.OriginalURL(), richErr.Message, print.MaybePrettyJSON(richErr.Metadata))

		return c.JSON(http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
			Message: "Internal Server Error",
		}})
	}
}
