package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
	"github.com/DjordjeVuckovic/regkb/pkg/pagination"
)

// Vocabulary validates and canonicalizes document types and jurisdictions.
type Vocabulary interface {
	ValidateDocumentType(s string) error
	ValidateJurisdiction(s string) error
	NormalizeDocumentType(s string) string
	NormalizeJurisdiction(s string) string
}

type DocumentRouter struct {
	e     *echo.Echo
	store storage.DocumentStore
	vocab Vocabulary
}

func NewDocumentRouter(e *echo.Echo, store storage.DocumentStore, vocab Vocabulary) *DocumentRouter {
	return &DocumentRouter{
		e:     e,
		store: store,
		vocab: vocab,
	}
}

func (r *DocumentRouter) Bind() {
	g := r.e.Group(apiPrefix)
	g.GET("/documents", r.listHandler)
	g.GET("/documents/:id", r.getHandler)
	g.PATCH("/documents/:id", r.patchHandler)
	g.GET("/stats", r.statsHandler)
	g.GET("/batches", r.batchesHandler)
}

func (r *DocumentRouter) listHandler(c echo.Context) error {
	var req pagination.OffsetRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return apperr.NewValidationWrap("invalid pagination", err)
	}
	_ = req.Validate()

	filter, err := r.filter(c)
	if err != nil {
		return err
	}

	docs, err := r.store.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Paginate(docs, req))
}

func (r *DocumentRouter) filter(c echo.Context) (domain.ListFilter, error) {
	var f domain.ListFilter

	if t := c.QueryParam("type"); t != "" {
		if err := r.vocab.ValidateDocumentType(t); err != nil {
			return f, err
		}
		f.DocumentType = r.vocab.NormalizeDocumentType(t)
	}
	if j := c.QueryParam("jurisdiction"); j != "" {
		if err := r.vocab.ValidateJurisdiction(j); err != nil {
			return f, err
		}
		f.Jurisdiction = r.vocab.NormalizeJurisdiction(j)
	}

	latest, err := queryBool(c, "latest", false)
	if err != nil {
		return f, err
	}
	f.LatestOnly = latest
	return f, nil
}

func (r *DocumentRouter) getHandler(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	doc, err := r.store.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperr.NewNotFound("document", id)
	}
	return c.JSON(http.StatusOK, doc)
}

func (r *DocumentRouter) patchHandler(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var fields map[string]any
	if err := (&echo.DefaultBinder{}).BindBody(c, &fields); err != nil {
		return apperr.NewValidationWrap("invalid request body", err)
	}

	if err := r.canonicalize(fields); err != nil {
		return err
	}

	ctx := c.Request().Context()
	ok, err := r.store.Update(ctx, id, domain.Fields(fields))
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NewNotFound("document", id)
	}

	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (r *DocumentRouter) canonicalize(fields map[string]any) error {
	if v, ok := fields[domain.FieldDocumentType].(string); ok {
		if err := r.vocab.ValidateDocumentType(v); err != nil {
			return err
		}
		fields[domain.FieldDocumentType] = r.vocab.NormalizeDocumentType(v)
	}
	if v, ok := fields[domain.FieldJurisdiction].(string); ok {
		if err := r.vocab.ValidateJurisdiction(v); err != nil {
			return err
		}
		fields[domain.FieldJurisdiction] = r.vocab.NormalizeJurisdiction(v)
	}
	return nil
}

func (r *DocumentRouter) statsHandler(c echo.Context) error {
	stats, err := r.store.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (r *DocumentRouter) batchesHandler(c echo.Context) error {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return err
	}
	batches, err := r.store.ListBatches(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if batches == nil {
		batches = []domain.ImportBatch{}
	}
	return c.JSON(http.StatusOK, batches)
}
