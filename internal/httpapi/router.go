package httpapi

import (
	"net/http"
	"strings"
)

// SetupRouter sets up HTTP routes. apiKey enables X-API-Key checks on
// everything except /version.
func SetupRouter(handler *Handler, apiKey string) http.Handler {
	mux := http.NewServeMux()

	// GET /version
	mux.HandleFunc("/version", handler.GetVersion)

	// POST /runs
	mux.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handler.CreateRun(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// GET /runs/{runId}
	// GET /runs/{runId}/report
	// GET /runs/{runId}/report.html
	mux.HandleFunc("/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/report.html"):
			handler.GetReportHTML(w, r)
		case strings.HasSuffix(path, "/report"):
			handler.GetReport(w, r)
		default:
			handler.GetRun(w, r)
		}
	})

	wrapped := AuthMiddleware(apiKey, mux)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/version" {
			mux.ServeHTTP(w, r)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}
