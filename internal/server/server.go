package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/internal/server/middlewares"
	"github.com/sirupsen/logrus"
)

// A Controller is an Iversion Of Control pattern used to init the server package.
type Controller struct {
	Version string
	Store   remote.Backend
	Logger  logrus.FieldLogger
	// JWT params
	SigningKey []byte
	// PASETO params (32 bytes)
	SessionSecret []byte
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	if ctrl.Logger == nil {
		ctrl.Logger = logrus.StandardLogger()
	}

	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler(ctrl.Logger)

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	////////////
	// Router //
	////////////

	router := engine.Group("")
	restricted := router.Group("")
	restricted.Use(middlewares.Authenticate(ctrl.SigningKey, ctrl.SessionSecret))

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// document handlers
	//
	document := &document{
		store:  ctrl.Store,
		logger: ctrl.Logger,
	}
	restricted.GET("/me", document.Me)
	restricted.POST("/documents/get", document.Get)
	restricted.POST("/documents/set", document.Set)
	restricted.POST("/documents/add", document.Add)
	restricted.POST("/documents/update", document.Update)
	restricted.POST("/documents/delete", document.Delete)
	restricted.POST("/documents/query", document.Query)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) string {
	user, _ := c.Get(middlewares.CurrentUserContextKey).(string)
	return user
}
