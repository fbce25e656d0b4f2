package server

import (
	"net/http"

	"github.com/openkcm/retrieval-gateway/internal/config"
)

func pingHandlerFunc(cfg *config.Config) http.HandlerFunc {
	return withOperation(cfg, "ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		_, _ = w.Write([]byte(`{ "result": "ping" }`))
	})
}
