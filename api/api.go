// Package api is the REST control surface of the daemon: status and
// statistics for inspection, cache flush and ad-hoc queries for control.
package api

import (
	"time"

	"github.com/0xERR0R/resolvd/resolve"
)

const (
	PathStatus     = "/api/status"
	PathStats      = "/api/stats"
	PathCacheFlush = "/api/cache/flush"
	PathQuery      = "/api/query"
)

// QueryRequest is the '/api/query' request payload.
type QueryRequest struct {
	// Query name
	Query string `json:"query"`
	// Record type as string, e.g. "A" or "AAAA"
	Type string `json:"type"`
}

// QueryResult is the '/api/query' response.
type QueryResult struct {
	// Terminal state of the transaction
	State string `json:"state"`
	// DNS return code as string
	ReturnCode string `json:"returnCode"`
	// Protocol the answer came over
	Protocol string `json:"protocol"`
	// DNSSEC validation result
	Dnssec string `json:"dnssec"`
	// True if the answer is authenticated
	Authenticated bool `json:"authenticated"`
	// Rendered answer records
	Response string `json:"response"`
}

// StatusResponse is the '/api/status' response.
type StatusResponse struct {
	InstanceID string                    `json:"instanceId"`
	Version    string                    `json:"version"`
	BuildTime  string                    `json:"buildTime"`
	StartTime  time.Time                 `json:"startTime"`
	Scopes     []resolve.ScopeStatistics `json:"scopes"`
}
