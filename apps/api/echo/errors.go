package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
)

var (
	errInvalidBody     = echo.NewHTTPError(http.StatusBadRequest, "The request body is invalid.")
	errLoginRequired   = echo.NewHTTPError(http.StatusBadRequest, "Login request requires email and password.")
	errBadCredentials  = echo.NewHTTPError(http.StatusUnauthorized, "The specified credentials were invalid.")
	errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "Authentication required.")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "The request was not made by an authorized user.")
	errTooManyRequests = echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests sent this minute.")
)

func notFoundMessage(ctx echo.Context) string {
	return fmt.Sprintf("Requested resource %s does not exist", ctx.Request().URL.Path)
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var vErr *core.ValidationError
		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == echo.ErrNotFound {
				code = http.StatusNotFound
				message = notFoundMessage(ctx)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, fe := range origErr {
				fldErrs[fe.Field()] = fe.Translate(translator)
			}
			code = http.StatusBadRequest
			message = echo.Map{"error": errInvalidBody.Message, "fields": fldErrs}
		default:
			switch {
			case errors.Is(err, core.ErrNotFound):
				code = http.StatusNotFound
				message = notFoundMessage(ctx)
			case errors.As(err, &vErr):
				code = http.StatusBadRequest
				msg := errInvalidBody.Message
				if vErr.Err != nil {
					msg = vErr.Err.Error()
				}
				message = echo.Map{"error": msg, "errors": vErr.Messages()}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), getActor(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			if ctx.Echo().Debug && code == http.StatusInternalServerError {
				m = err.Error()
			}
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
