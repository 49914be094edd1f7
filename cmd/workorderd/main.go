// File path: cmd/workorderd/main.go
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/orderflow/workorder-engine/internal/api"
	"github.com/orderflow/workorder-engine/internal/common"
	"github.com/orderflow/workorder-engine/internal/engine"
	"github.com/orderflow/workorder-engine/internal/llm"
	"github.com/orderflow/workorder-engine/internal/probe/sqlprobe"
	"github.com/orderflow/workorder-engine/internal/recipe"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("workorderd: .env file not loaded", "error", err)
	} else {
		logger.Info("workorderd: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	catalogDir := flag.String("catalog", defaultCatalogDir(), "path to the recipe catalog directory")
	workers := flag.Int("workers", 32, "worker pool size bounding concurrent runs")
	queueDepth := flag.Int("queue-depth", 0, "bounded submission queue depth (0 = workers*4)")
	dsn := flag.String("dsn", strings.TrimSpace(os.Getenv("WORKORDER_DSN")), "data source name for the read-only SQL probe")
	driver := flag.String("driver", envOr("WORKORDER_DB_DRIVER", "postgres"), "database/sql driver name registered for the probe")
	flag.Parse()

	logger.Info("workorderd: startup initiated", "addr", *addr, "catalog", *catalogDir)

	store := recipe.NewStore()
	status, err := store.Load(*catalogDir)
	if err != nil {
		logger.Error("workorderd: catalog load failed", "error", err)
		fmt.Println("catalog load error:", err)
		os.Exit(1)
	}
	logger.Info("workorderd: catalog loaded", "loaded", status.Loaded, "errors", len(status.Errors))
	for _, loadErr := range status.Errors {
		logger.Warn("workorderd: recipe rejected", "file", loadErr.File, "reason", loadErr.Reason)
	}

	provider := llm.NewProvider()
	logger.Info("workorderd: llm provider ready", "provider", provider.Name())

	sqlProbe, err := buildProbe(*driver, *dsn)
	if err != nil {
		logger.Error("workorderd: probe construction failed", "error", err)
		fmt.Println("probe error:", err)
		os.Exit(1)
	}

	eng := engine.New(store, provider, sqlProbe, engine.WithPool(*workers, *queueDepth))
	defer eng.Close()

	server, err := api.NewServer(eng, api.Config{CatalogPath: *catalogDir, RunDeadline: 30 * time.Second})
	if err != nil {
		logger.Error("workorderd: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("workorderd: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("workorderd: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

// buildProbe opens a pooled, read-only connection using the configured
// driver and DSN. The driver itself is the operator's concern; workorderd
// only wires whatever database/sql driver has been registered via blank
// import in the build.
func buildProbe(driver, dsn string) (*sqlprobe.SQLProbe, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("no DSN configured (set WORKORDER_DSN or -dsn)")
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect probe database: %w", err)
	}
	cfg, err := sqlprobe.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load probe config: %w", err)
	}
	return sqlprobe.Open(db, cfg)
}

func defaultCatalogDir() string {
	return filepath.Join("data", "recipes")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
