package api

import (
	"html/template"
	"net/http"

	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/log"
	"github.com/0xERR0R/resolvd/util"
	"github.com/0xERR0R/resolvd/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CreateRouter builds the REST router with CORS, the profiler and the
// start page. Endpoints are registered separately via RegisterEndpoint.
func CreateRouter(cfg *config.Config) *chi.Mux {
	router := chi.NewRouter()

	configureCorsHandler(router)

	configureDebugHandler(router)

	configureRootHandler(cfg, router)

	return router
}

func configureRootHandler(cfg *config.Config, router *chi.Mux) {
	router.Get("/", func(writer http.ResponseWriter, request *http.Request) {
		t := template.New("index")
		_, _ = t.Parse(web.IndexTmpl)

		type HandlerLink struct {
			URL   string
			Title string
		}

		type PageData struct {
			Links     []HandlerLink
			Version   string
			BuildTime string
		}

		pd := PageData{
			Version:   util.Version,
			BuildTime: util.BuildTime,
			Links: []HandlerLink{
				{
					URL:   PathStatus,
					Title: "Engine status",
				},
				{
					URL:   PathStats,
					Title: "Query statistics",
				},
				{
					URL:   "/debug/",
					Title: "Go Profiler",
				},
			},
		}

		if cfg.Prometheus.IsEnabled() {
			pd.Links = append(pd.Links, HandlerLink{
				URL:   cfg.Prometheus.Path,
				Title: "Prometheus endpoint",
			})
		}

		if err := t.Execute(writer, pd); err != nil {
			log.Log().Error("can't write index template: ", err)
			writer.WriteHeader(http.StatusInternalServerError)
		}
	})
}

func configureDebugHandler(router *chi.Mux) {
	router.Mount("/debug", middleware.Profiler())
}

func configureCorsHandler(router *chi.Mux) {
	crs := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	router.Use(crs.Handler)
}
