package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/vvaria04/Traffic-light-Management/internal/advisory"
	"github.com/vvaria04/Traffic-light-Management/internal/controller"
	"github.com/vvaria04/Traffic-light-Management/internal/history"
	"github.com/vvaria04/Traffic-light-Management/internal/metrics"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// HealthStatus is served by /healthz.
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	Cycles    int64     `json:"cycles"`
	Failures  int64     `json:"failures"`
	StartTime time.Time `json:"startTime"`
	Uptime    string    `json:"uptime"`
}

// StatusResponse is served by /status.
type StatusResponse struct {
	controller.Status
	Advisory   advisory.Split      `json:"advisory"`
	Prediction *history.Prediction `json:"prediction,omitempty"`
}

type Predictor interface {
	PredictAt(ctx context.Context, t time.Time) (history.Prediction, error)
}

type Server struct {
	ctrl       *controller.Controller
	predictor  Predictor
	staleAfter time.Duration
	cycle      time.Duration
	mux        *http.ServeMux

	mu    sync.Mutex
	split advisory.Split
}

// New builds the HTTP surface of a running controller. predictor may be nil.
func New(ctrl *controller.Controller, predictor Predictor, staleAfter, cycle time.Duration) *Server {
	s := &Server{
		ctrl:       ctrl,
		predictor:  predictor,
		staleAfter: staleAfter,
		cycle:      cycle,
		split:      advisory.EvenSplit(cycle),
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/readyz", s.handleReady)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.Handle("/metrics", s.metricsHandler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) health() HealthStatus {
	st := s.ctrl.Status()
	return HealthStatus{
		Healthy:   s.ctrl.Alive(s.staleAfter),
		Cycles:    st.Cycles,
		Failures:  st.Failures,
		StartTime: st.StartTime,
		Uptime:    st.Uptime,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health()

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.health()
	if status.Healthy && status.Cycles > 0 {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.Status()
	resp := StatusResponse{
		Status:   st,
		Advisory: s.advise(st),
	}
	if s.predictor != nil {
		pred, err := s.predictor.PredictAt(r.Context(), st.Now)
		if err != nil {
			klog.ErrorS(err, "Prediction failed")
		} else if pred.Found {
			resp.Prediction = &pred
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// advise remembers the last split so an empty intersection keeps it.
func (s *Server) advise(st controller.Status) advisory.Split {
	var demand phase.Demand
	for _, d := range phase.Directions {
		demand[d] = st.Smoothed[d.String()]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.split = advisory.SplitFor(demand, s.cycle, s.split)
	return s.split
}

func (s *Server) metricsHandler() http.Handler {
	next := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordStatus(s.ctrl.Status())
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		klog.InfoS("Starting status server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
