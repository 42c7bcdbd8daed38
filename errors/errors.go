package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrEmptyContent       = fmt.Errorf("message content is empty")
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrUnknownUser        = fmt.Errorf("unknown user")
	ErrUnknownRoom        = fmt.Errorf("unknown room")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrRoomAlreadyExists  = fmt.Errorf("room already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
)

// MapToHTTPError converts domain sentinel errors into the HTTP error the
// transport edge returns. Anything unrecognized is a 500 with no internal
// detail leaked to the caller.
func MapToHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnknownUser),
		errors.Is(err, ErrUnknownRoom),
		errors.Is(err, ErrInvalidPassword):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserAlreadyExists),
		errors.Is(err, ErrRoomAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
