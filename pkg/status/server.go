package status

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/engine"
	"github.com/embeddingBits/dronenet/pkg/scenario"
)

// Server exposes read-only snapshots of a running scenario over HTTP.
type Server struct {
	runID uuid.UUID
	topo  *scenario.Topology
	snap  func() engine.Snapshot
	srv   *http.Server
}

func NewServer(topo *scenario.Topology, snap func() engine.Snapshot) *Server {
	return &Server{
		runID: uuid.New(),
		topo:  topo,
		snap:  snap,
	}
}

func (s *Server) RunID() string { return s.runID.String() }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/status", s.handleStatus)
		v1.Get("/nodes", s.handleNodes)
		v1.Get("/links", s.handleLinks)
	})
	return r
}

// Start serves in the background until Shutdown.
func (s *Server) Start(addr string) {
	s.srv = &http.Server{Addr: addr, Handler: s.Router()}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Println("status server:", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

type statusView struct {
	RunID string `json:"runId"`
	engine.Snapshot
}

type nodeView struct {
	Name     string       `json:"name"`
	Kind     api.NodeKind `json:"kind"`
	Ipv4     string       `json:"ipv4,omitempty"`
	Position api.Position `json:"position"`
}

type linkView struct {
	Src      string       `json:"src"`
	Dst      string       `json:"dst"`
	Kind     api.LinkKind `json:"kind"`
	RateMbps uint64       `json:"rateMbps"`
	DelayUs  float64      `json:"delayUs"`
	Loss     float32      `json:"loss"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusView{RunID: s.runID.String(), Snapshot: s.snap()})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	views := make([]nodeView, 0, len(s.topo.Nodes))
	for _, name := range s.topo.NodeNames() {
		n := s.topo.Node(name)
		views = append(views, nodeView{
			Name:     n.Name,
			Kind:     n.Kind,
			Ipv4:     n.Interface.Ipv4,
			Position: n.Position,
		})
	}
	writeJSON(w, views)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	views := make([]linkView, 0, len(s.topo.Links))
	for _, l := range s.topo.Links {
		views = append(views, linkView{
			Src:      l.SrcNode,
			Dst:      l.DstNode,
			Kind:     l.Kind,
			RateMbps: l.Properties.RateMbps,
			DelayUs:  l.Properties.DelayUs,
			Loss:     l.Properties.Loss,
		})
	}
	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("status server encode:", err)
	}
}
