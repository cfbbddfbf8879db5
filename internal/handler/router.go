package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// Routes collects the handlers served by NewRouter
type Routes struct {
	Mvps       *MvpHandler
	Users      *UserHandler
	Events     http.Handler // optional SSE endpoint
	CORSOrigin string
	Logger     *zap.Logger
}

// NewRouter builds the API handler with its middleware chain
func NewRouter(rt Routes) http.Handler {
	logger := rt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, map[string]string{"message": "Big Fish API is running!"}, http.StatusOK)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, map[string]string{"status": "healthy"}, http.StatusOK)
	})

	if rt.Mvps != nil {
		mux.HandleFunc("GET /mvps", rt.Mvps.List)
		mux.HandleFunc("POST /mvps", rt.Mvps.Create)
		mux.HandleFunc("GET /mvps/{id}", rt.Mvps.Get)
		mux.HandleFunc("PUT /mvps/{id}", rt.Mvps.Update)
	}
	if rt.Users != nil {
		mux.HandleFunc("GET /users", rt.Users.List)
		mux.HandleFunc("GET /users/{uid}", rt.Users.Get)
		mux.HandleFunc("PUT /users/{uid}", rt.Users.Update)
	}
	if rt.Events != nil {
		mux.Handle("GET /events", rt.Events)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, ErrorResponse{Error: "Not Found", Path: r.URL.Path}, http.StatusNotFound)
	})

	return Chain(mux,
		Recover(logger),
		CORS(rt.CORSOrigin),
		Logger(logger),
		StripSlash,
	)
}
