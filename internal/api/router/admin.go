package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

// Uploader copies a finished backup directory off the host.
type Uploader interface {
	UploadDir(ctx context.Context, dir string) ([]string, error)
}

type AdminRouter struct {
	e          *echo.Echo
	store      storage.DocumentStore
	backupsDir string
	uploader   Uploader
}

func NewAdminRouter(e *echo.Echo, store storage.DocumentStore, backupsDir string, uploader Uploader) *AdminRouter {
	return &AdminRouter{
		e:          e,
		store:      store,
		backupsDir: backupsDir,
		uploader:   uploader,
	}
}

func (r *AdminRouter) Bind() {
	r.e.POST(apiPrefix+"/backup", r.backupHandler)
}

type backupResponse struct {
	Path     string   `json:"path"`
	Uploaded []string `json:"uploaded,omitempty"`
}

func (r *AdminRouter) backupHandler(c echo.Context) error {
	ctx := c.Request().Context()

	path, err := r.store.Backup(ctx, r.backupsDir)
	if err != nil {
		return err
	}
	slog.Info("Backup written", "path", path)

	resp := backupResponse{Path: path}
	if r.uploader != nil {
		keys, err := r.uploader.UploadDir(ctx, path)
		if err != nil {
			return err
		}
		resp.Uploaded = keys
	}
	return c.JSON(http.StatusCreated, resp)
}
