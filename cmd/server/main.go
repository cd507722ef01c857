package main

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Shioencaja/observation-tracker/internal/api"
	dbstore "github.com/Shioencaja/observation-tracker/internal/db"
	"github.com/Shioencaja/observation-tracker/internal/middleware"
	"github.com/Shioencaja/observation-tracker/internal/services"
	"github.com/Shioencaja/observation-tracker/internal/storage"
	"github.com/Shioencaja/observation-tracker/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file", "err", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	addr := utils.SafeEnv("OBSTRACK_ADDR", ":8080")
	commit := os.Getenv("OBSTRACK_COMMIT")
	buildTime := os.Getenv("OBSTRACK_BUILD_TIME")

	store, err := openStore()
	if err != nil {
		slog.Error("open store", "err", err)
		os.Exit(1)
	}

	blobDir := utils.SafeEnv("OBSTRACK_RECORDINGS_DIR", "data/grabaciones")
	baseURL := utils.SafeEnv("OBSTRACK_PUBLIC_URL", "http://localhost:8080") + "/grabaciones"
	var blobs services.BlobStore
	if disk, err := storage.NewDiskStore(blobDir, baseURL); err != nil {
		slog.Warn("recording storage disabled", "err", err)
	} else {
		blobs = disk
	}

	mux := http.NewServeMux()
	api.NewRouter(store, blobs).Register(mux)
	mux.Handle("/grabaciones/", http.StripPrefix("/grabaciones/", http.FileServer(http.Dir(blobDir))))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Observation Tracker API",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	handler := middleware.CORS(middleware.SecureHeaders(middleware.NoStore(middleware.LocaleMiddleware(middleware.WithAuth(mux)))))

	slog.Info("server listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// openStore picks the persistence backend: postgres when a DSN is set,
// sqlite when a file path is set, otherwise in-memory.
func openStore() (api.Store, error) {
	if dsn := os.Getenv("OBSTRACK_DATABASE_URL"); dsn != "" {
		pg, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		if err := dbstore.RunMigrations(pg, "postgres", os.Getenv("OBSTRACK_MIGRATIONS_DIR")); err != nil {
			return nil, err
		}
		slog.Info("using postgres store")
		return dbstore.NewPostgresStore(pg)
	}
	if path := os.Getenv("OBSTRACK_SQLITE_PATH"); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn := "file:" + filepath.ToSlash(path) + "?cache=shared&_busy_timeout=5000&_loc=UTC"
		lite, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		if err := dbstore.RunMigrations(lite, "sqlite", os.Getenv("OBSTRACK_MIGRATIONS_DIR")); err != nil {
			return nil, err
		}
		slog.Info("using sqlite store", "path", path)
		return dbstore.NewSQLiteStore(lite)
	}
	slog.Info("using in-memory store")
	return api.NewMemoryStore(), nil
}
