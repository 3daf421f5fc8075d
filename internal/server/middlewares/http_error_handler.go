package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/starving/internal/apperror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HTTPErrorHandler returns a handler that formats rendered errors.
func HTTPErrorHandler(logger logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		switch e := errors.Cause(err).(type) {
		case *echo.HTTPError:
			logger.WithError(err).Debug("echo error")
			_ = c.JSON(e.Code, echo.Map{
				"error": echo.Map{
					"message": e.Message,
				},
			})
		case *apperror.Error:
			status := apperror.StatusCode(e)
			if status < 500 {
				_ = c.JSON(status, e)
				return
			}

			internal(logger, err, c)
		default:
			internal(logger, err, c)
		}
	}
}

func internal(logger logrus.FieldLogger, err error, c echo.Context) {
	id := uuid.Must(uuid.NewV4()).String()
	logger.WithField("id", id).WithError(err).Error("unexpected error")

	_ = c.JSON(http.StatusInternalServerError, echo.Map{
		"error": echo.Map{
			"message": fmt.Sprintf("Unexpected error (id: %s)", id),
		},
	})
}
