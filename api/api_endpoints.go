package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/0xERR0R/resolvd/instanceid"
	"github.com/0xERR0R/resolvd/log"
	"github.com/0xERR0R/resolvd/model"
	"github.com/0xERR0R/resolvd/resolve"
	"github.com/0xERR0R/resolvd/util"
	"github.com/go-chi/chi/v5"
	"github.com/miekg/dns"
)

const (
	contentTypeHeader = "content-type"
	jsonContentType   = "application/json"
)

// EngineStatus provides the scope snapshot for the status endpoint.
type EngineStatus interface {
	Statistics() resolve.Statistics
}

// CacheControl flushes the answer caches.
type CacheControl interface {
	FlushCaches()
}

// Querier performs one resolution.
type Querier interface {
	Resolve(ctx context.Context, name string, qType uint16) (*resolve.Result, error)
}

// StatsProvider exposes the aggregated hourly statistics.
type StatsProvider interface {
	AggregateResults() map[string]map[string]int
}

// StatusEndpoint endpoint for the engine status
type StatusEndpoint struct {
	status    EngineStatus
	startTime time.Time
}

// CacheEndpoint endpoint for cache control
type CacheEndpoint struct {
	control CacheControl
}

// QueryEndpoint endpoint for ad-hoc queries
type QueryEndpoint struct {
	querier Querier
}

// StatsEndpoint endpoint for aggregated statistics
type StatsEndpoint struct {
	provider StatsProvider
}

// RegisterEndpoint registers an implementation as HTTP endpoint
func RegisterEndpoint(router chi.Router, t interface{}) {
	if a, ok := t.(EngineStatus); ok {
		registerStatusEndpoint(router, a)
	}

	if a, ok := t.(CacheControl); ok {
		registerCacheEndpoint(router, a)
	}

	if a, ok := t.(Querier); ok {
		registerQueryEndpoint(router, a)
	}

	if a, ok := t.(StatsProvider); ok {
		registerStatsEndpoint(router, a)
	}
}

func registerStatusEndpoint(router chi.Router, status EngineStatus) {
	s := &StatusEndpoint{status: status, startTime: time.Now()}

	router.Get(PathStatus, s.apiStatus)
}

func registerCacheEndpoint(router chi.Router, control CacheControl) {
	c := &CacheEndpoint{control}

	router.Post(PathCacheFlush, c.apiCacheFlush)
}

func registerQueryEndpoint(router chi.Router, querier Querier) {
	q := &QueryEndpoint{querier}

	router.Post(PathQuery, q.apiQuery)
}

func registerStatsEndpoint(router chi.Router, provider StatsProvider) {
	s := &StatsEndpoint{provider}

	router.Get(PathStats, s.apiStats)
}

// apiStatus returns the process and scope status
func (s *StatusEndpoint) apiStatus(rw http.ResponseWriter, _ *http.Request) {
	status := StatusResponse{
		InstanceID: instanceid.String(),
		Version:    util.Version,
		BuildTime:  util.BuildTime,
		StartTime:  s.startTime,
		Scopes:     s.status.Statistics().Scopes,
	}

	writeJSON(rw, status)
}

// apiCacheFlush drops all cached answers
func (c *CacheEndpoint) apiCacheFlush(rw http.ResponseWriter, _ *http.Request) {
	log.Log().Info("flushing caches...")

	c.control.FlushCaches()

	rw.Header().Set(contentTypeHeader, jsonContentType)

	_, err := rw.Write([]byte("{}"))
	util.LogOnError("unable to write response ", err)
}

// apiStats returns the hourly aggregated query statistics
func (s *StatsEndpoint) apiStats(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, s.provider.AggregateResults())
}

// apiQuery performs a DNS query through the engine
func (q *QueryEndpoint) apiQuery(rw http.ResponseWriter, req *http.Request) {
	var queryRequest QueryRequest

	if err := json.NewDecoder(req.Body).Decode(&queryRequest); err != nil {
		log.Log().Error("can't read request: ", log.EscapeInput(err.Error()))
		http.Error(rw, err.Error(), http.StatusBadRequest)

		return
	}

	qType, found := dns.StringToType[queryRequest.Type]
	if !found || !model.TypeIsValidQuery(qType) {
		err := fmt.Errorf("unknown query type '%s'", queryRequest.Type)
		log.Log().Error(log.EscapeInput(err.Error()))
		http.Error(rw, err.Error(), http.StatusBadRequest)

		return
	}

	result, err := q.querier.Resolve(req.Context(), dns.Fqdn(queryRequest.Query), qType)
	if err != nil {
		log.Log().Error("unable to process query: ", log.EscapeInput(err.Error()))
		http.Error(rw, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(rw, QueryResult{
		State:         result.State.String(),
		ReturnCode:    dns.RcodeToString[result.Rcode],
		Protocol:      result.Protocol.String(),
		Dnssec:        result.Dnssec.String(),
		Authenticated: result.Authenticated,
		Response:      util.AnswerToString(answerRecords(result.Answer)),
	})
}

func answerRecords(answer *model.Answer) []dns.RR {
	var result []dns.RR

	for _, item := range answer.Items() {
		if item.Flags&model.AnswerSectionAnswer != 0 {
			result = append(result, item.RR)
		}
	}

	return result
}

func writeJSON(rw http.ResponseWriter, v interface{}) {
	rw.Header().Set(contentTypeHeader, jsonContentType)

	response, err := json.Marshal(v)
	util.LogOnError("unable to marshal response ", err)

	_, err = rw.Write(response)
	util.LogOnError("unable to write response ", err)
}
