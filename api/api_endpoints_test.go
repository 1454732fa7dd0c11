package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"

	"github.com/0xERR0R/resolvd/model"
	"github.com/0xERR0R/resolvd/resolve"
	"github.com/go-chi/chi/v5"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeEngine implements every control interface of the api package.
type fakeEngine struct {
	result  *resolve.Result
	err     error
	flushed bool

	queries []string
}

func (f *fakeEngine) Statistics() resolve.Statistics {
	return resolve.Statistics{
		Scopes: []resolve.ScopeStatistics{
			{Protocol: "dns", Family: "unspec", Transactions: 2, CacheEntries: 5},
		},
	}
}

func (f *fakeEngine) FlushCaches() {
	f.flushed = true
}

func (f *fakeEngine) Resolve(_ context.Context, name string, _ uint16) (*resolve.Result, error) {
	f.queries = append(f.queries, name)

	return f.result, f.err
}

func (f *fakeEngine) AggregateResults() map[string]map[string]int {
	return map[string]map[string]int{
		"Resolution outcomes": {"success": 7},
	}
}

var _ = Describe("API endpoints", func() {
	var (
		router *chi.Mux
		engine *fakeEngine
	)

	BeforeEach(func() {
		engine = &fakeEngine{}
		router = chi.NewRouter()

		RegisterEndpoint(router, engine)
	})

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

		return rr
	}

	post := func(path string, body []byte) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))

		return rr
	}

	Describe("status", func() {
		It("returns the engine snapshot", func() {
			rr := get(PathStatus)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(rr.Header().Get(contentTypeHeader)).Should(Equal(jsonContentType))

			var status StatusResponse
			Expect(json.Unmarshal(rr.Body.Bytes(), &status)).Should(Succeed())
			Expect(status.InstanceID).ShouldNot(BeEmpty())
			Expect(status.Scopes).Should(HaveLen(1))
			Expect(status.Scopes[0].Protocol).Should(Equal("dns"))
		})
	})

	Describe("cache flush", func() {
		It("flushes the caches", func() {
			rr := post(PathCacheFlush, nil)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(engine.flushed).Should(BeTrue())
		})
	})

	Describe("stats", func() {
		It("returns the aggregated statistics", func() {
			rr := get(PathStats)

			Expect(rr.Code).Should(Equal(http.StatusOK))

			var stats map[string]map[string]int
			Expect(json.Unmarshal(rr.Body.Bytes(), &stats)).Should(Succeed())
			Expect(stats["Resolution outcomes"]).Should(HaveKeyWithValue("success", 7))
		})
	})

	Describe("query", func() {
		queryBody := func(query, qType string) []byte {
			body, err := json.Marshal(QueryRequest{Query: query, Type: qType})
			Expect(err).Should(Succeed())

			return body
		}

		It("resolves and renders the result", func() {
			answer := model.NewAnswer()
			answer.Add(&dns.A{
				Hdr: dns.RR_Header{
					Name: "www.example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300,
				},
				A: net.ParseIP("192.0.2.1").To4(),
			}, 0, model.AnswerSectionAnswer)

			engine.result = &resolve.Result{
				State:    resolve.TransactionStateSuccess,
				Rcode:    dns.RcodeSuccess,
				Answer:   answer,
				Protocol: model.ProtocolDns,
			}

			rr := post(PathQuery, queryBody("www.example.com", "A"))

			Expect(rr.Code).Should(Equal(http.StatusOK))

			var result QueryResult
			Expect(json.Unmarshal(rr.Body.Bytes(), &result)).Should(Succeed())
			Expect(result.ReturnCode).Should(Equal("NOERROR"))
			Expect(result.Response).Should(ContainSubstring("192.0.2.1"))

			// name arrives fully qualified
			Expect(engine.queries).Should(ConsistOf("www.example.com."))
		})

		It("refuses unknown record types", func() {
			rr := post(PathQuery, queryBody("www.example.com", "WRONGTYPE"))

			Expect(rr.Code).Should(Equal(http.StatusBadRequest))
			Expect(engine.queries).Should(BeEmpty())
		})

		It("refuses malformed payloads", func() {
			rr := post(PathQuery, []byte("no json"))

			Expect(rr.Code).Should(Equal(http.StatusBadRequest))
		})

		It("reports resolution errors", func() {
			engine.err = context.DeadlineExceeded

			rr := post(PathQuery, queryBody("www.example.com", "A"))

			Expect(rr.Code).Should(Equal(http.StatusInternalServerError))
		})
	})
})
