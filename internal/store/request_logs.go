// ABOUTME: Request log storage operations.
// ABOUTME: Handles inserting and querying HTTP request logs and aggregate stats.

package store

import "time"

// RequestLog represents an HTTP request log entry
type RequestLog struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action,omitempty"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	StatusCode   int       `json:"status_code"`
	DurationMs   int       `json:"duration_ms"`
	Error        string    `json:"error,omitempty"`
	RequestBody  string    `json:"request_body,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
}

// LogRequest inserts a request log entry
func (s *Store) LogRequest(log *RequestLog) error {
	_, err := s.db.Exec(`
		INSERT INTO request_logs (action, method, path, status_code, duration_ms, error, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, log.Action, log.Method, log.Path, log.StatusCode, log.DurationMs, log.Error, log.RequestBody, log.ResponseBody)
	return err
}

// RequestLogQuery represents filters for request logs
type RequestLogQuery struct {
	Limit      int
	Offset     int
	Action     string
	StatusCode int
}

// RequestLogStats represents aggregate statistics
type RequestLogStats struct {
	TotalRequests int `json:"total_requests"`
	TodayRequests int `json:"today_requests"`
	ErrorRequests int `json:"error_requests"`
	AvgDurationMs int `json:"avg_duration_ms"`
}

// GetRequestLogs retrieves request logs with filtering, newest first.
func (s *Store) GetRequestLogs(q *RequestLogQuery) ([]*RequestLog, error) {
	query := `SELECT id, timestamp, COALESCE(action, ''), method, path, status_code, duration_ms,
	          COALESCE(error, ''), COALESCE(request_body, ''), COALESCE(response_body, '')
	          FROM request_logs WHERE 1=1`
	args := []any{}

	if q.Action != "" {
		query += " AND action = ?"
		args = append(args, q.Action)
	}
	if q.StatusCode > 0 {
		query += " AND status_code = ?"
		args = append(args, q.StatusCode)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		entry := &RequestLog{}
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Action, &entry.Method, &entry.Path,
			&entry.StatusCode, &entry.DurationMs, &entry.Error, &entry.RequestBody, &entry.ResponseBody); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// GetRequestLogStats computes aggregate request statistics.
func (s *Store) GetRequestLogStats() (*RequestLogStats, error) {
	stats := &RequestLogStats{}
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(CASE WHEN DATE(timestamp) = DATE('now') THEN 1 END),
		       COUNT(CASE WHEN status_code >= 400 THEN 1 END),
		       COALESCE(CAST(AVG(duration_ms) AS INTEGER), 0)
		FROM request_logs
	`).Scan(&stats.TotalRequests, &stats.TodayRequests, &stats.ErrorRequests, &stats.AvgDurationMs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
