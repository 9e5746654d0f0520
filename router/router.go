package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"medirecords/config"
	handlers "medirecords/handler"
	"medirecords/internal/entity"
	"medirecords/internal/resource"
	"medirecords/internal/session"
	"medirecords/middleware"
	"medirecords/pkg/apierror"
	"medirecords/socket"
	"medirecords/store"
)

// Setup mounts every route. Reads are public; mutations go through
// middleware.RequireSession.
func Setup(cfg *config.Config, gw *store.Gateway, hub *socket.Hub, sessions *session.Manager, auth *handlers.AuthHandler) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierror.Write(w, apierror.New(apierror.NotFound, "Route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierror.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	// REST API
	for _, spec := range entity.Specs() {
		repo := resource.NewRepository(gw, spec.Collection, cfg.StoreTimeout)
		svc := resource.NewService(spec, repo, hub)
		resource.NewHandler(svc).Register(r, "/"+spec.Collection, middleware.RequireSession)
	}

	r.HandleFunc("/auth/login", auth.Login).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", auth.Callback).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", auth.Logout).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", auth.Me).Methods(http.MethodGet)

	// WebSocket
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	}).Methods(http.MethodGet)

	r.Handle("/health", handlers.NewHealthHandler(gw)).Methods(http.MethodGet)

	var h http.Handler = r
	h = middleware.Sessions(sessions)(h)
	h = middleware.BodyLimit(cfg.MaxBodyBytes)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.Logging(h)
	return middleware.Recovery(h)
}
