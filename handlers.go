package mdblog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/mdblog/content"
	"github.com/eringen/mdblog/views"
)

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleHome)
	e.GET("/posts/:slug", a.handlePost)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	api := e.Group("/api")
	api.GET("/posts", a.handleAPIPosts, a.apiRateLimiter())
	api.POST("/publish", a.handlePublish)
	api.GET("/publish", handlePublishStatus)
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	tag := c.QueryParam("tag")
	posts := a.Cache.ListPosts(ctx, tag)
	tags := a.Cache.ListTags(ctx)
	return Render(c, a.Views.Home(a.Config.Site(), posts, tag, tags))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Repo.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return a.renderErrorPage(c, http.StatusNotFound)
		}
		return err
	}
	related := views.FilterRelatedPosts(post, a.Cache.ListPosts(ctx, ""))
	return Render(c, a.Views.Post(a.Config.Site(), post, related))
}

func (a *App) handleSitemap(c echo.Context) error {
	return a.renderSitemap(c, a.Cache.ListPosts(c.Request().Context(), ""))
}

func (a *App) handleFeed(c echo.Context) error {
	return a.renderRSS(c, a.Cache.ListPosts(c.Request().Context(), ""))
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error."
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= 500 {
		a.logger.Error("server error", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
		msg = "Internal server error."
	}

	if isAPI(c) {
		_ = c.JSON(code, errorResponse{Error: msg})
		return
	}
	if code == http.StatusNotFound || code >= 500 {
		if rerr := a.renderErrorPage(c, code); rerr != nil {
			a.logger.Error("render error page", "error", rerr)
			_ = c.String(code, http.StatusText(code))
		}
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
