// ABOUTME: Entry point for the notebridge workspace command server.
// ABOUTME: Wires together the Notion client, resolver, schema cache, dispatcher, and HTTP handlers.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/2389/notebridge/internal/api"
	"github.com/2389/notebridge/internal/auth"
	"github.com/2389/notebridge/internal/command"
	"github.com/2389/notebridge/internal/config"
	"github.com/2389/notebridge/internal/logging"
	"github.com/2389/notebridge/internal/notion"
	"github.com/2389/notebridge/internal/resolve"
	"github.com/2389/notebridge/internal/schema"
	"github.com/2389/notebridge/internal/selftest"
	"github.com/2389/notebridge/internal/store"
)

var (
	port   string
	dbPath string
)

func main() {
	config.LoadEnv()

	rootCmd := &cobra.Command{
		Use:   "notebridge",
		Short: "notebridge - schema-aware command server for a Notion workspace",
		Long: `notebridge exposes a small set of HTTP actions that let callers (humans,
scripts, or LLM agents) manipulate one Notion workspace's pages and databases
without knowing Notion's schema or type system.

Every write action fetches the target's live property schema first and
validates values against it before any mutation is issued.

Quick Start:
  notebridge selftest   # Verify schema fetch, query, and update end-to-end
  notebridge serve      # Start the server on port 9000

Environment Variables:
  NOTION_TOKEN                Notion integration token (also checked:
                              NOTION_API_KEY, NOTION_SECRET, NOTION_ACCESS_TOKEN)
  NOTION_ROOT_PAGE            Exact title of the root container
  NOTION_SELFTEST_DATABASE_ID Designated self-test database (optional)
  NOTION_SELFTEST_PAGE_ID     Designated self-test page (optional)
  NOTEBRIDGE_PORT             Server port (default: 9000)
  NOTEBRIDGE_DB_PATH          SQLite path for logs and self-test history
  NOTEBRIDGE_API_KEY          Require this bearer token on inbound requests`,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&port, "port", "p", getEnv("NOTEBRIDGE_PORT", "9000"), "Port to listen on")
	serveCmd.Flags().StringVarP(&dbPath, "db", "d", getEnv("NOTEBRIDGE_DB_PATH", "./notebridge.db"), "Database path")

	selftestCmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the end-to-end self-test and print the report",
		Long: `Runs the three-stage self-test against the live workspace:
schema fetch, query, and a real property update with a round-trip read.
Exits non-zero when any stage fails.`,
		RunE: runSelftest,
	}
	selftestCmd.Flags().StringVarP(&dbPath, "db", "d", getEnv("NOTEBRIDGE_DB_PATH", "./notebridge.db"), "Database path")

	rootCmd.AddCommand(serveCmd, selftestCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// validateAndCleanDBPath validates and cleans a database path.
func validateAndCleanDBPath(path string) (string, error) {
	cleanPath := strings.TrimSpace(path)
	cleanPath = filepath.Clean(cleanPath)

	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}
	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}
	return cleanPath, nil
}

type app struct {
	cfg        *config.Config
	store      *store.Store
	dispatcher *command.Dispatcher
	runner     *selftest.Runner
}

func newApp(dbPath string) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	client := notion.NewClient(cfg.NotionToken)
	resolver := resolve.New(client, cfg.RootPageName)
	schemas := schema.NewCache(client)

	deps := &command.Deps{API: client, Resolver: resolver, Schemas: schemas}
	dispatcher := command.NewDispatcher(deps)
	runner := selftest.New(client, resolver, schemas, cfg.SelftestDatabaseID, cfg.SelftestPageID)

	return &app{cfg: cfg, store: s, dispatcher: dispatcher, runner: runner}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	var err error
	dbPath, err = validateAndCleanDBPath(dbPath)
	if err != nil {
		return err
	}

	a, err := newApp(dbPath)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(a.store))
	r.Use(auth.Middleware(a.cfg.APIKey))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api.NewHandlers(a.dispatcher, a.runner, a.store, a.cfg).RegisterRoutes(r)

	addr := ":" + port
	log.Printf("notebridge server listening on %s", addr)
	log.Printf("Root container: %q", a.cfg.RootPageName)
	log.Printf("Database: %s", dbPath)
	return http.ListenAndServe(addr, r)
}

func runSelftest(cmd *cobra.Command, args []string) error {
	var err error
	dbPath, err = validateAndCleanDBPath(dbPath)
	if err != nil {
		return err
	}

	a, err := newApp(dbPath)
	if err != nil {
		return err
	}
	defer a.store.Close()

	report := a.runner.Run(context.Background())
	if err := a.store.SaveSelftestRun(report.StartedAt, report.Status, report); err != nil {
		log.Printf("failed to persist self-test run: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	if report.Status != selftest.StatusPass {
		return fmt.Errorf("self-test failed")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
