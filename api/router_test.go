package api

import (
	"net/http"
	"net/http/httptest"

	"github.com/0xERR0R/resolvd/config"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Router", func() {
	var cfg *config.Config

	BeforeEach(func() {
		var err error
		cfg, err = config.LoadConfig("non-existing-config.yaml", false)
		Expect(err).Should(Succeed())
	})

	It("serves the start page", func() {
		router := CreateRouter(cfg)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rr.Code).Should(Equal(http.StatusOK))
		Expect(rr.Body.String()).Should(ContainSubstring("resolvd"))
	})

	It("links the prometheus endpoint when metrics are enabled", func() {
		cfg.Prometheus.Enable = true
		cfg.Prometheus.Path = "/metrics"

		router := CreateRouter(cfg)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rr.Body.String()).Should(ContainSubstring("/metrics"))
	})
})
