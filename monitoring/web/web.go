// Package web holds the page of the monitoring server. The page shows the
// statistics, the tables, and the progress of a run.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/sarchlab/pagesim/config"
)

//go:embed dist/*
var dist embed.FS

// DevModeEnv names the environment variable that, when true, makes the
// monitor read the page from the source tree on every request. A page can
// then be edited without rebuilding pagesim.
const DevModeEnv = "PAGESIM_MONITOR_DEV"

// GetAssets returns the file system that the monitor serves at its root.
func GetAssets() http.FileSystem {
	if config.EnvBool(DevModeEnv, false) {
		dir := sourceDist()
		slog.Info("serving the monitoring page from the source tree",
			"dir", dir)

		return http.Dir(dir)
	}

	pages, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(pages)
}

func sourceDist() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate the monitoring page sources")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}
