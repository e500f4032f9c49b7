package mdblog

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/mdblog/publish"
)

const defaultAPILimit = 5

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// handleAPIPosts serves GET /api/posts?limit=N.
func (a *App) handleAPIPosts(c echo.Context) error {
	limit := parseLimit(c.QueryParam("limit"), defaultAPILimit)
	posts := a.Cache.ListPosts(c.Request().Context(), "")
	if len(posts) > limit {
		posts = posts[:limit]
	}
	out := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, summarize(a.Config.URL, p))
	}
	return c.JSON(http.StatusOK, postsResponse{
		Posts:     out,
		Total:     len(out),
		Timestamp: timestamp(),
	})
}

// handlePublish serves POST /api/publish.
func (a *App) handlePublish(c echo.Context) error {
	req := c.Request()
	body, err := io.ReadAll(io.LimitReader(req.Body, publish.MaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read request body.")
	}
	oversized := len(body) > publish.MaxBodyBytes
	if oversized {
		body = nil
	}
	res, err := a.Gateway.Publish(req.Context(), publish.Request{
		Client:    publish.ClientKey(req.Header),
		APIKey:    req.Header.Get("x-api-key"),
		Body:      body,
		Oversized: oversized,
	})
	if err != nil {
		return c.JSON(publish.StatusCode(err), errorResponse{Error: publish.PublicMessage(err)})
	}
	msg := "Post published successfully!"
	if a.Config.PublishMode == "github" {
		msg += " Site will redeploy shortly."
	}
	return c.JSON(http.StatusOK, publishResponse{
		Success: true,
		Slug:    res.Slug,
		Message: msg,
		URL:     res.URL,
	})
}

// handlePublishStatus serves GET /api/publish as a health probe.
func handlePublishStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:    "ok",
		Message:   "Publish API is running",
		Timestamp: timestamp(),
	})
}
