// ABOUTME: HTTP request logging middleware.
// ABOUTME: Captures method, path, status, duration, bodies, and the command action, and stores them in the database.

package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/2389/notebridge/internal/store"
)

const maxBodySize = 10 * 1024 // 10KB limit for body capture

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	if rw.body.Len() < maxBodySize {
		toCopy := len(b)
		if rw.body.Len()+toCopy > maxBodySize {
			toCopy = maxBodySize - rw.body.Len()
		}
		rw.body.Write(b[:toCopy])
	}
	return rw.ResponseWriter.Write(b)
}

// Middleware logs all HTTP requests to the database
func Middleware(s *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health checks would drown out the interesting traffic.
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			var requestBody []byte
			if r.Body != nil {
				requestBody, _ = io.ReadAll(io.LimitReader(r.Body, maxBodySize))
				rest, _ := io.ReadAll(r.Body)
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(requestBody), bytes.NewReader(rest)))
			}

			rw := &responseWriter{ResponseWriter: w, body: &bytes.Buffer{}}
			start := time.Now()
			next.ServeHTTP(rw, r)
			duration := time.Since(start)

			entry := &store.RequestLog{
				Action:       extractAction(r.URL.Path, requestBody),
				Method:       r.Method,
				Path:         r.URL.Path,
				StatusCode:   rw.statusCode,
				DurationMs:   int(duration.Milliseconds()),
				RequestBody:  string(requestBody),
				ResponseBody: rw.body.String(),
			}
			if rw.statusCode >= 400 {
				entry.Error = rw.body.String()
			}
			if err := s.LogRequest(entry); err != nil {
				log.Printf("failed to log request: %v", err)
			}
		})
	}
}

// extractAction pulls the dotted action identifier out of command bodies
// so logs are filterable per action, not just per path.
func extractAction(path string, body []byte) string {
	if !strings.HasSuffix(path, "/command") || len(body) == 0 {
		return ""
	}
	var cmd struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &cmd); err != nil {
		return ""
	}
	return cmd.Action
}
