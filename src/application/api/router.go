package api

import (
	"net/http"

	"mediagrab-be-server/src/application/auth"
)

// NewRouter wires every route behind auth and per-user rate limiting.
// Health stays outside so load balancers don't need credentials.
func NewRouter(handler *Handler, verifier auth.Verifier, perSecond float64, burst int) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/download", handler.DownloadSingle)
	mux.HandleFunc("/api/download/batch", handler.DownloadBatch)

	mux.HandleFunc("/api/video/check", handler.VideoCheck)
	mux.HandleFunc("/api/video/download", handler.VideoDownload)
	mux.HandleFunc("/api/video/batch", handler.VideoBatch)
	mux.HandleFunc("/api/video/formats", handler.VideoFormats)

	mux.HandleFunc("/api/records", handler.ListRecords)
	mux.HandleFunc("/api/records/stats", handler.RecordStats)
	// the stats path registers first in match precedence, everything else
	// under /api/records/ is a record ID
	mux.HandleFunc("/api/records/", handler.DeleteRecord)

	protected := AuthMiddleware(verifier)(RateLimitMiddleware(perSecond, burst)(mux))

	root := http.NewServeMux()
	root.HandleFunc("/health", healthCheck)
	root.Handle("/api/", protected)

	return root
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
