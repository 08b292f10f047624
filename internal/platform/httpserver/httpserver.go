package httpserver

import (
	"net/http"
	"time"

	"github.com/texlink-oficial/texlink/internal/platform/config"
)

// New builds the API server. WriteTimeout sits above the router's request
// timeout so the timeout middleware answers first and the client gets a JSON
// error instead of a dropped connection. Validation and credit endpoints fan
// out to external bureaus, which is what pushes the budget that high.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      75 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
