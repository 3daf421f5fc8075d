package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/o1egl/paseto/v2"
)

// CurrentUserContextKey is the key to retrieve the current_user id from echo.Context.
const CurrentUserContextKey = "current_user"

const issuer = "starving"

// Authenticate returns an auth middleware accepting JWT and local PASETO bearer tokens.
// It stores current_user into echo.Context.
func Authenticate(signingKey, sessionSecret []byte) echo.MiddlewareFunc {
	jwtmw := echojwt.WithConfig(echojwt.Config{
		SigningKey: signingKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(jwt.RegisteredClaims)
		},
	})
	v2 := paseto.NewV2()

	fake := func(echo.Context) error {
		return nil
	}

	unauthorized := func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": echo.Map{
				"tag":     "invalid-auth",
				"message": "Invalid login credentials.",
			},
		})
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := token(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return unauthorized(c)
			}

			//
			// PASETO
			//

			if strings.HasPrefix(token, "v2.local.") {
				if len(sessionSecret) == 0 {
					return unauthorized(c)
				}

				var claims paseto.JSONToken
				if err := v2.Decrypt(token, sessionSecret, &claims, nil); err != nil {
					return unauthorized(c)
				}
				err := claims.Validate(paseto.IssuedBy(issuer), paseto.ValidAt(time.Now()))
				if err != nil || claims.Subject == "" {
					return unauthorized(c)
				}

				c.Set(CurrentUserContextKey, claims.Subject)
				return next(c)
			}

			//
			// JWT
			//

			if err := jwtmw(fake)(c); err != nil { // Check JWT validity according its claims.
				return unauthorized(c)
			}

			tk, ok := c.Get("user").(*jwt.Token)
			if !ok {
				panic("token implementation has changed")
			}
			subject, err := tk.Claims.GetSubject()
			if err != nil || subject == "" {
				return unauthorized(c)
			}

			c.Set(CurrentUserContextKey, subject)
			return next(c)
		}
	}
}

func token(authorization string) string {
	parts := strings.Split(authorization, " ")
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
