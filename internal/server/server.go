package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"artframe/internal/frame"
	"artframe/internal/gallery"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server exposes the gallery documents over HTTP and pushes refreshed
// captions to websocket clients.
type Server struct {
	addr     string
	svc      *frame.Service
	hub      *hub
	upgrader websocket.Upgrader
	log      *slog.Logger
	server   *http.Server
}

// NewServer creates a server for svc listening on addr.
func NewServer(addr string, svc *frame.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		addr: addr,
		svc:  svc,
		hub:  newHub(log),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.startBackground(ctx)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.log.Info("Shutting down server...")

		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info("Server starting", "addr", s.addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/images", s.handleImages).Methods("GET")
	r.HandleFunc("/api/images/{name}/{kind}", s.handleDocument).Methods("GET")
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods("POST")
	r.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	return r
}

// startBackground runs the hub and forwards resolver events until ctx is done.
func (s *Server) startBackground(ctx context.Context) {
	go s.hub.run(ctx)

	res := s.svc.Resolver()
	if res == nil {
		return
	}
	events, unsubscribe := res.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.State != gallery.AddressResolved {
					continue
				}
				s.pushCaption(ctx, ev.File)
			}
		}
	}()
}

type message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (s *Server) pushCaption(ctx context.Context, name string) {
	doc := s.svc.Caption(ctx, name)
	if doc == nil {
		return
	}
	payload, err := json.Marshal(message{Type: "caption", Data: doc})
	if err != nil {
		s.log.Warn("encode caption failed", "file", name, "error", err)
		return
	}
	s.hub.send(ctx, payload)
}

type imageSummary struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	lib := s.svc.Library()
	names := lib.Names()
	out := make([]imageSummary, 0, len(names))
	for _, name := range names {
		rec, ok := lib.Get(name)
		if !ok {
			continue
		}
		out = append(out, imageSummary{Name: name, Address: rec.State.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doc, err := s.svc.Document(r.Context(), vars["name"], vars["kind"])
	switch {
	case errors.Is(err, frame.ErrUnknownKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	case doc == nil:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Refresh(r.Context(), nil)
	if err != nil {
		s.log.Error("refresh failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := map[string]any{"files": s.svc.Library().Len()}
	if p != nil {
		resp["pass"] = p.ID
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	if !s.hub.add(conn) {
		conn.Close()
		return
	}

	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
