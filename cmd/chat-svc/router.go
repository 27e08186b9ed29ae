package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"startupconnect/internal/common"
	"startupconnect/internal/di"
)

// newRouter assembles the HTTP surface of a chat node. CORS wraps the router
// itself so preflight requests are answered before route matching.
func newRouter(app *di.ChatApp) http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.Handle("/ws", app.WebSocket).Methods(http.MethodGet)
	app.Media.Register(r)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", health).Methods(http.MethodGet)
	app.UserHandler.RegisterPublic(api)

	authed := api.NewRoute().Subrouter()
	authed.Use(common.RequireAuth(app.Tokens))
	app.UserHandler.RegisterAuthed(authed)
	app.ChatHandler.Register(authed)

	return corsMiddleware(app.Config.Server.AllowedOrigins)(r)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the websocket upgrade needs the raw writer for Hijack
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			log.Printf("→ %s %s (upgrade)", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d (%v)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func corsMiddleware(allowed []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
