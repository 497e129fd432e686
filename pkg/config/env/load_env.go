// Package env loads dotenv files into the process environment.
package env

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// PathVar overrides the dotenv path passed to LoadDotEnv.
const PathVar = "ENV_PATH"

// LoadDotEnv loads "<path>.<env>" when it exists and then <path>, where path is
// $ENV_PATH or defaultPath. Earlier files and the process environment win, so
// the overlay only fills what is not set yet. Missing files are skipped; a
// malformed file fails only in local mode.
func LoadDotEnv(env string, defaultPath string) error {
	path := defaultPath
	if p := os.Getenv(PathVar); p != "" {
		path = p
	}

	files := []string{path}
	if env != "" {
		files = []string{path + "." + env, path}
	}

	for _, f := range files {
		err := godotenv.Load(f)
		switch {
		case err == nil:
			slog.Debug("Loaded env file", "path", f)
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("No env file found", "path", f)
		case env == "local" || env == "":
			slog.Error("Failed to load env file in local mode", "path", f, "error", err)
			return err
		default:
			slog.Warn("Skipping unreadable env file", "path", f, "error", err)
		}
	}
	return nil
}
