// ABOUTME: HTTP handlers for the command endpoint, ping, self-test, and request-log history.
// ABOUTME: Maps dispatcher failures to transport status codes and applies the advisory self-test gate.

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/2389/notebridge/internal/command"
	"github.com/2389/notebridge/internal/config"
	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/selftest"
	"github.com/2389/notebridge/internal/store"
)

// Handlers wires the dispatch core to the HTTP surface.
type Handlers struct {
	dispatcher *command.Dispatcher
	runner     *selftest.Runner
	store      *store.Store
	cfg        *config.Config
	openapi    []byte
}

// NewHandlers builds the HTTP layer over the assembled core.
func NewHandlers(dispatcher *command.Dispatcher, runner *selftest.Runner, s *store.Store, cfg *config.Config) *Handlers {
	h := &Handlers{dispatcher: dispatcher, runner: runner, store: s, cfg: cfg}
	doc, err := buildOpenAPIDocument(dispatcher.Actions())
	if err != nil {
		log.Printf("failed to build OpenAPI document: %v", err)
	} else {
		h.openapi = doc
	}
	return h
}

// RegisterRoutes mounts every endpoint on the router.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/v1/ping", h.ping)
	r.Post("/v1/command", h.command)
	r.Post("/v1/selftest", h.runSelftest)
	r.Get("/v1/selftest", h.lastSelftest)
	r.Get("/v1/logs", h.logs)
	r.Get("/v1/stats", h.stats)
	r.Get("/openapi.json", h.openAPIDocument)
}

func (h *Handlers) ping(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"root_page": h.cfg.RootPageName,
		"actions":   h.dispatcher.Actions(),
	}
	if last, err := h.store.LastSelftestRun(); err == nil && last != nil {
		status["last_selftest"] = last.Status
	} else {
		status["last_selftest"] = "NEVER_RUN"
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) command(w http.ResponseWriter, r *http.Request) {
	var cmd command.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		apierr.WriteKind(w, apierr.KindValidation, "invalid request body: %v", err)
		return
	}
	if cmd.Action == "" {
		apierr.WriteKind(w, apierr.KindValidation, "action is required")
		return
	}

	// Advisory gate: a non-passing last self-test flags the response but
	// never blocks the command.
	warning := h.selftestWarning()
	if warning != "" {
		w.Header().Set("X-Selftest-Status", warning)
	}

	result, err := h.dispatcher.Execute(r.Context(), cmd)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response := map[string]any{"status": "ok", "result": result.Result}
	meta := result.Meta
	if warning != "" {
		if meta == nil {
			meta = command.Meta{}
		}
		meta["warning"] = "last self-test status is " + warning + "; results may be unreliable"
	}
	if len(meta) > 0 {
		response["meta"] = meta
	}
	writeJSON(w, http.StatusOK, response)
}

// selftestWarning returns the last non-PASS self-test status, or "".
func (h *Handlers) selftestWarning() string {
	last, err := h.store.LastSelftestRun()
	if err != nil || last == nil {
		return ""
	}
	if last.Status == selftest.StatusPass {
		return ""
	}
	return last.Status
}

func (h *Handlers) runSelftest(w http.ResponseWriter, r *http.Request) {
	report := h.runner.Run(r.Context())
	if err := h.store.SaveSelftestRun(report.StartedAt, report.Status, report); err != nil {
		log.Printf("failed to persist self-test run: %v", err)
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) lastSelftest(w http.ResponseWriter, r *http.Request) {
	last, err := h.store.LastSelftestRun()
	if err != nil {
		apierr.WriteKind(w, apierr.KindUpstream, "failed to read self-test history: %v", err)
		return
	}
	if last == nil {
		apierr.WriteKind(w, apierr.KindNotFound, "no self-test has been run")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (h *Handlers) logs(w http.ResponseWriter, r *http.Request) {
	q := &store.RequestLogQuery{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
		Action: r.URL.Query().Get("action"),
	}
	if code := queryInt(r, "status", 0); code > 0 {
		q.StatusCode = code
	}
	logs, err := h.store.GetRequestLogs(q)
	if err != nil {
		apierr.WriteKind(w, apierr.KindUpstream, "failed to read request logs: %v", err)
		return
	}
	if logs == nil {
		logs = []*store.RequestLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetRequestLogStats()
	if err != nil {
		apierr.WriteKind(w, apierr.KindUpstream, "failed to compute stats: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) openAPIDocument(w http.ResponseWriter, r *http.Request) {
	if h.openapi == nil {
		apierr.WriteKind(w, apierr.KindNotFound, "OpenAPI document unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(h.openapi)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
