package handler

import "net/http"

// DebugInfo is what /__debug reports about the running configuration.
// Only presence flags are exposed, never values.
type DebugInfo struct {
	Env            string `json:"env"`
	HasDatabaseURL bool   `json:"hasDatabaseUrl"`
	HasPGHost      bool   `json:"hasPgHost"`
	HasJWTSecret   bool   `json:"hasJwtSecret"`
	Storage        string `json:"storage"`
}

// RegisterSystemRoutes registers the liveness and debug routes.
//
// Routes:
// - GET /health  -> "OK"
// - GET /__debug -> DebugInfo
func RegisterSystemRoutes(mux *http.ServeMux, info DebugInfo) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /__debug", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			OK bool `json:"ok"`
			DebugInfo
		}{OK: true, DebugInfo: info})
	})
}
