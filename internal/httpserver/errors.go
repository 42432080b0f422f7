package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
)

type errorBody struct {
	Status  string            `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorHandler renders every failure as {"status","code","message"}.
// Framework errors such as unknown routes keep their status.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var body errorBody
	var status int

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		body.Code = strings.ReplaceAll(strings.ToUpper(http.StatusText(status)), " ", "_")
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = http.StatusText(status)
		}
	} else {
		ae := apperr.As(err)
		status = ae.Status
		body.Code = ae.Code
		body.Message = ae.Message
		body.Fields = ae.Fields
	}

	body.Status = "error"
	if status < http.StatusBadRequest {
		body.Status = "pending"
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}

// fail logs a handler failure at a level matching its status and returns it
// for ErrorHandler to render.
func fail(l *slog.Logger, event string, err error) error {
	status := apperr.HTTPStatus(err)
	code := apperr.As(err).Code
	switch {
	case status >= 500 || errors.Is(err, apperr.ErrDataIntegrityRisk):
		l.Error(event, "status", status, "code", code, "error", err)
	default:
		l.Warn(event, "status", status, "code", code, "error", err)
	}
	return err
}

func badBody(l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", 400, "reason", "invalid body", "error", err)
	return apperr.Invalid("invalid body")
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name + " is not a valid uuid")
	}
	return id, nil
}
