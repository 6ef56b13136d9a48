package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/askg-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/askg-chat/backend/internal/handler/relay"
	"github.com/zhouzirui/askg-chat/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/askg-chat/backend/internal/middleware"
	chatService "github.com/zhouzirui/askg-chat/backend/internal/service/chat"
	relayService "github.com/zhouzirui/askg-chat/backend/internal/service/relay"
	"github.com/zhouzirui/askg-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(relaySvc *relayService.Relay, sessions *chatService.Service, collector *metrics.Collector, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	relay.NewWebSocketHandler(relaySvc).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		chat.New(sessions).RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": sessions.Count(),
		})
	})

	if collector != nil {
		r.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	// Static client assets.
	r.Group(func(static chi.Router) {
		static.Use(middleware.Compress(5))
		static.Handle("/*", http.FileServer(http.Dir(staticDir)))
	})

	return r
}
