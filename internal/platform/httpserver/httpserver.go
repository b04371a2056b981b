// Package httpserver builds the API's http.Server.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the server. Write timeout sits above the 30s handler
// timeout so the notify path, which performs a synchronous webhook send,
// is cut off by its own deadline rather than a dropped connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
