package router

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/diff"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/identifier"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
	"github.com/DjordjeVuckovic/regkb/internal/version"
)

type VersionRouter struct {
	e            *echo.Echo
	resolver     *version.Resolver
	store        storage.DocumentReader
	reviews      storage.ReviewStore
	catalog      *identifier.Catalog
	contextLines int
	now          func() time.Time
}

func NewVersionRouter(
	e *echo.Echo,
	resolver *version.Resolver,
	store storage.DocumentStore,
	catalog *identifier.Catalog,
	contextLines int,
) *VersionRouter {
	return &VersionRouter{
		e:            e,
		resolver:     resolver,
		store:        store,
		reviews:      store,
		catalog:      catalog,
		contextLines: contextLines,
		now:          time.Now,
	}
}

func (r *VersionRouter) Bind() {
	g := r.e.Group(apiPrefix)
	g.GET("/diff", r.diffHandler)
	g.GET("/versions", r.versionsHandler)
	g.GET("/reviews", r.listReviewsHandler)
	g.POST("/reviews/:id/confirm", r.confirmHandler)
	g.POST("/reviews/:id/dismiss", r.dismissHandler)
}

func (r *VersionRouter) diffHandler(c echo.Context) error {
	a, err := queryID(c, "doc1")
	if err != nil {
		return err
	}
	b, err := queryID(c, "doc2")
	if err != nil {
		return err
	}
	lines, err := queryInt(c, "context", r.contextLines)
	if err != nil {
		return err
	}
	format := c.QueryParam("format")
	if format == "" {
		format = "json"
	}

	switch format {
	case "json", "html", "unified", "markdown", "csv":
	default:
		return apperr.NewValidation(fmt.Sprintf("invalid format %q, expected one of [json html unified markdown csv]", format))
	}

	report, err := r.resolver.Compare(c.Request().Context(), a, b, diff.Options{
		Context:     lines,
		IncludeHTML: format == "html",
	})
	if errors.Is(err, diff.ErrTextUnavailable) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return err
	}

	switch format {
	case "html":
		return c.HTML(http.StatusOK, report.HTML)
	case "unified":
		return c.Blob(http.StatusOK, "text/x-diff; charset=utf-8", []byte(report.Unified))
	case "markdown":
		return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Markdown(r.now())))
	case "csv":
		out, err := report.CSV(r.now())
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(out))
	}
	return c.JSON(http.StatusOK, report)
}

type versionsResponse struct {
	Summary   identifier.Summary       `json:"summary"`
	Documents []identifier.VersionInfo `json:"documents"`
}

func (r *VersionRouter) versionsHandler(c echo.Context) error {
	status := identifier.Status(c.QueryParam("status"))
	switch status {
	case "", identifier.StatusCurrent, identifier.StatusOutdated, identifier.StatusUnknown:
	default:
		return apperr.NewValidation(fmt.Sprintf("invalid status %q", status))
	}

	docs, err := r.store.List(c.Request().Context(), domain.ListFilter{LatestOnly: true})
	if err != nil {
		return err
	}

	all := r.catalog.CheckAll(docs, "")
	shown := all
	if status != "" {
		shown = r.catalog.CheckAll(docs, status)
	}
	return c.JSON(http.StatusOK, versionsResponse{
		Summary:   identifier.Summarize(all),
		Documents: shown,
	})
}

func (r *VersionRouter) listReviewsHandler(c echo.Context) error {
	status := domain.ReviewStatus(c.QueryParam("status"))
	switch status {
	case "", domain.ReviewPending, domain.ReviewConfirmed, domain.ReviewDismissed:
	default:
		return apperr.NewValidation(fmt.Sprintf("invalid review status %q", status))
	}

	reviews, err := r.reviews.ListReviews(c.Request().Context(), status)
	if err != nil {
		return err
	}
	if reviews == nil {
		reviews = []domain.VersionReview{}
	}
	return c.JSON(http.StatusOK, reviews)
}

func (r *VersionRouter) confirmHandler(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	review, err := r.resolver.ConfirmReview(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, review)
}

func (r *VersionRouter) dismissHandler(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	review, err := r.resolver.DismissReview(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, review)
}
