package server

import (
	"net/http"

	"arena/server/domain"
	"arena/server/handler"
)

func Route(hub *domain.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(hub))
	mux.Handle("/healthz", handler.NewHealthHandler())
	return mux
}
