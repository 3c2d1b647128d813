package middleware

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorBody is the uniform JSON shape of every failed request.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler renders errors returned by handlers and middleware.  An
// *echo.HTTPError whose Message is an ErrorBody is written as is; a plain
// string message gets a kind derived from the status code.  Anything else
// is a 500 and the cause is logged, not returned.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := ErrorBody{Error: "internal", Message: "internal server error"}

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		switch m := he.Message.(type) {
		case ErrorBody:
			body = m
		case string:
			body = ErrorBody{Error: kindForStatus(code), Message: m}
		default:
			body = ErrorBody{Error: kindForStatus(code), Message: http.StatusText(code)}
		}
		if he.Internal != nil {
			log.Printf("http: %s %s: %v", c.Request().Method, c.Path(), he.Internal)
		}
	} else {
		log.Printf("http: %s %s: %v", c.Request().Method, c.Path(), err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusBadGateway:
		return "gateway_error"
	}
	if code >= 500 {
		return "internal"
	}
	return "error"
}
