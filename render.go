package mdblog

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
// The component is rendered before the header is sent, so a render error
// still reaches the error handler.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	var buf bytes.Buffer
	if err := cmp.Render(c.Request().Context(), &buf); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}

// renderErrorPage writes the not-found or server-error view for code.
func (a *App) renderErrorPage(c echo.Context, code int) error {
	site := a.Config.Site()
	if code == http.StatusNotFound {
		return RenderStatus(c, code, a.Views.NotFound(site))
	}
	return RenderStatus(c, code, a.Views.ServerError(site))
}
