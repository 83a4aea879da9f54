package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/commons-client/internal/hub"
	"github.com/DoyleJ11/commons-client/internal/ws"
)

func SetupRoutes(h *hub.Hub, sub ws.Submitter, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/view", GetView(h))
	r.Get("/frames/{frame}", GetFrame(h, logger))
	r.Get("/ws", ws.Handler(h, sub, logger))

	r.Post("/start", PostStart(sub))
	r.Post("/actions/{action}", PostAction(sub))
	return r
}
