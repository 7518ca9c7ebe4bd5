package regionservice

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type HTTPServer struct {
	server *http.Server
	router *mux.Router
}

func NewHTTPServer(addr string) *HTTPServer {
	router := mux.NewRouter()

	srv := &http.Server{
		Addr:         addr,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	return &HTTPServer{
		server: srv,
		router: router,
	}
}

func (hs *HTTPServer) Start() {
	go func() {
		log.Printf("HTTP server starting on %s", hs.server.Addr)
		if err := hs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()
}

func (hs *HTTPServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := hs.server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")
}

func (hs *HTTPServer) RegisterRoutes(service *Service, wsServer *WebSocketServer) {
	hs.router.HandleFunc("/ws/regions", wsServer.HandleWebSocket)

	hs.router.HandleFunc("/regions", service.ListRegionsHandler).Methods("GET")
	hs.router.HandleFunc("/regions", service.CreateRegionHandler).Methods("POST")
	hs.router.HandleFunc("/regions/{region_id}", service.GetRegionHandler).Methods("GET")
	hs.router.HandleFunc("/regions/{region_id}", service.UpdateRegionHandler).Methods("PUT")
	hs.router.HandleFunc("/regions/{region_id}", service.DeleteRegionHandler).Methods("DELETE")
	hs.router.HandleFunc("/regions/{region_id}/members", service.GetMembersHandler).Methods("GET")
	hs.router.HandleFunc("/regions/{region_id}/test", service.TestPointHandler).Methods("POST")
	hs.router.HandleFunc("/regions/{region_id}/segmentize", service.SegmentizeHandler).Methods("POST")
	hs.router.HandleFunc("/regions/{region_id}/place", service.PlaceTokenHandler).Methods("POST")
	hs.router.HandleFunc("/tokens/{token_id}/move", service.MoveTokenHandler).Methods("POST")
}
