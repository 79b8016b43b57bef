// ABOUTME: Environment-variable configuration for the notebridge server.
// ABOUTME: Loads .env files via godotenv and resolves the Notion token from candidate variables.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// TokenEnvCandidates are checked in order; the first non-empty value wins.
var TokenEnvCandidates = []string{
	"NOTION_TOKEN",
	"NOTION_API_KEY",
	"NOTION_SECRET",
	"NOTION_ACCESS_TOKEN",
}

// Config holds everything the surrounding process supplies to the core.
// The core consumes it but never owns or mutates it.
type Config struct {
	Port   string
	DBPath string

	// APIKey, when set, is required as a Bearer token on inbound requests.
	APIKey string

	// NotionToken authenticates against the Notion API.
	NotionToken string

	// RootPageName is the exact title of the well-known root container.
	// Resolution is by title match, never by a stored identifier.
	RootPageName string

	// SelftestDatabaseID/SelftestPageID designate the self-test targets.
	// When empty they are discovered under the root on first use.
	SelftestDatabaseID string
	SelftestPageID     string
}

// LoadEnv pulls in .env files the same way the seed tooling used to:
// current dir, parents, then the home directory. Missing files are fine.
func LoadEnv() {
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".env"))
	}
}

// FromEnv builds a Config from the process environment. The Notion token is
// validated here; target designators are validated lazily on first use.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("NOTEBRIDGE_PORT", "9000"),
		DBPath:             getEnv("NOTEBRIDGE_DB_PATH", "./notebridge.db"),
		APIKey:             strings.TrimSpace(os.Getenv("NOTEBRIDGE_API_KEY")),
		RootPageName:       strings.TrimSpace(os.Getenv("NOTION_ROOT_PAGE")),
		SelftestDatabaseID: strings.TrimSpace(os.Getenv("NOTION_SELFTEST_DATABASE_ID")),
		SelftestPageID:     strings.TrimSpace(os.Getenv("NOTION_SELFTEST_PAGE_ID")),
	}

	cfg.NotionToken = ResolveToken()
	if cfg.NotionToken == "" {
		return nil, fmt.Errorf("missing Notion token: set one of %s", strings.Join(TokenEnvCandidates, ", "))
	}
	if cfg.RootPageName == "" {
		return nil, fmt.Errorf("NOTION_ROOT_PAGE is required (exact title of the root container)")
	}
	return cfg, nil
}

// ResolveToken returns the first non-empty token candidate, or "".
func ResolveToken() string {
	for _, name := range TokenEnvCandidates {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
