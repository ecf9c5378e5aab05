package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"aod-backend/services/catalog"
	"aod-backend/services/rankings"
)

// read-only status endpoints for probes and quick inspection; the real
// API surface lives elsewhere.
func RegisterStatusRoutes(mux *http.ServeMux, rank *rankings.Service, cat catalog.Service) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /rankings/{platform}", func(w http.ResponseWriter, r *http.Request) {
		entries, err := rank.List(r.Context(), r.PathValue("platform"))
		if err != nil {
			slog.ErrorContext(r.Context(), "list rankings", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJson(w, entries)
	})

	mux.HandleFunc("GET /contents/{domain}", func(w http.ResponseWriter, r *http.Request) {
		contents, err := cat.List(r.Context(), r.PathValue("domain"))
		if err != nil {
			slog.ErrorContext(r.Context(), "list contents", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJson(w, contents)
	})
}

func writeJson(w http.ResponseWriter, value any) {
	w.Header().Set("content-type", "application/json")
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.Error("encode response", "err", err)
	}
}
