package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/search"
)

type SearchRouter struct {
	e            *echo.Echo
	engine       *search.Engine
	defaultLimit int
	latestOnly   bool
}

type SearchRouterOption func(*SearchRouter)

func WithDefaults(limit int, latestOnly bool) SearchRouterOption {
	return func(r *SearchRouter) {
		if limit > 0 {
			r.defaultLimit = limit
		}
		r.latestOnly = latestOnly
	}
}

func NewSearchRouter(e *echo.Echo, engine *search.Engine, opts ...SearchRouterOption) *SearchRouter {
	r := &SearchRouter{
		e:            e,
		engine:       engine,
		defaultLimit: search.DefaultLimit,
		latestOnly:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SearchRouter) Bind() {
	g := r.e.Group(apiPrefix)
	g.GET("/search", r.searchHandler)
	g.POST("/reindex", r.reindexHandler)
}

type searchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

func (r *SearchRouter) searchHandler(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return apperr.NewValidation("q query parameter is required")
	}

	limit, err := queryInt(c, "limit", r.defaultLimit)
	if err != nil {
		return err
	}
	latest, err := queryBool(c, "latest", r.latestOnly)
	if err != nil {
		return err
	}
	excerpt, err := queryBool(c, "excerpt", false)
	if err != nil {
		return err
	}

	results, err := r.engine.Search(c.Request().Context(), search.Query{
		Text:           q,
		Limit:          limit,
		DocumentType:   c.QueryParam("type"),
		Jurisdiction:   c.QueryParam("jurisdiction"),
		LatestOnly:     latest,
		IncludeExcerpt: excerpt,
	})
	if err != nil {
		return err
	}
	if results == nil {
		results = []search.Result{}
	}
	return c.JSON(http.StatusOK, searchResponse{Query: q, Results: results})
}

func (r *SearchRouter) reindexHandler(c echo.Context) error {
	n, err := r.engine.ReindexAll(c.Request().Context(), nil)
	if errors.Is(err, search.ErrNoIndex) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"indexed": n})
}
