package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/hub"
	"github.com/DoyleJ11/hidden-role-client/internal/lobby"
	"github.com/DoyleJ11/hidden-role-client/internal/ws"
)

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	opts.defaults()
	a := &api{hub: h, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLog(opts.Log.Named("http")))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/readyz", a.readyz)
	r.Get("/ws", ws.Handler(h, ws.Options{Text: opts.Text, Log: opts.Log, OriginPatterns: opts.OriginPatterns}))

	r.Route("/accounts/{account}", func(r chi.Router) {
		r.Get("/", a.getView)
		r.Post("/connect", a.action(lobby.Connect{}))
		r.Post("/disconnect", a.action(lobby.Disconnect{}))
		r.Post("/refresh", a.action(lobby.Refresh{}))
		r.Post("/dismiss", a.action(lobby.Dismiss{}))
		r.Post("/probe", a.action(lobby.Probe{}))
		r.Post("/sessions", a.createSession)
		r.Post("/select", a.selectSession)
		r.Post("/verify", a.verify)
	})
	return r
}

func requestLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
