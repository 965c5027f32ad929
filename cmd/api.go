package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/truckplan/truckplan/plan"
	"github.com/truckplan/truckplan/plan/geo"
)

// apiServer is the serve-mode HTTP surface. It is single-tenant: the most
// recent load plan is held in memory for the export endpoint.
type apiServer struct {
	router *plan.Router
	cfg    plan.Config
	params plan.RoutingParams

	mu       sync.Mutex
	lastPlan *plan.LoadPlan
	lastDate time.Time
}

func newAPIServer(router *plan.Router, cfg plan.Config, params plan.RoutingParams) *apiServer {
	return &apiServer{router: router, cfg: cfg, params: params}
}

// handler wires the API routes with request logging.
func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/optimize", s.handleOptimize)
	mux.HandleFunc("/routes/optimize", s.handleRouteOptimize)
	mux.HandleFunc("/no-multi-stop-customers", s.handleNoMultiStop)
	mux.HandleFunc("/export/load-list", s.handleExportLoadList)
	return logRequests(mux)
}

// optimizeRequest overrides are per-job; absent fields use the server
// defaults.
type optimizeRequest struct {
	Rows         []plan.Row         `json:"rows"`
	PlanningWhse *[]string          `json:"planningWhse,omitempty"`
	WeightConfig *plan.WeightConfig `json:"weightConfig,omitempty"`
	NoMultiStop  *[]string          `json:"noMultiStopCustomers,omitempty"`
	Today        string             `json:"today,omitempty"`
}

type optimizeResponse struct {
	JobID string `json:"jobId"`
	*plan.LoadPlan
}

type routeOptimizeRequest struct {
	Rows          []plan.Row          `json:"rows"`
	RoutingParams *plan.RoutingParams `json:"routingParams,omitempty"`
	Depot         *DepotConfig        `json:"depot,omitempty"`
	PlanningWhse  *[]string           `json:"planningWhse,omitempty"`
	Today         string              `json:"today,omitempty"`
}

type routeOptimizeResponse struct {
	JobID string `json:"jobId"`
	*plan.RoutePlan
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSONBody(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *apiServer) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	cfg, err := s.jobConfig(req.PlanningWhse, req.WeightConfig, req.NoMultiStop, req.Today)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := uuid.NewString()
	logrus.Infof("optimize job %s: %d rows", jobID, len(req.Rows))
	p, err := plan.PlanLoads(req.Rows, cfg)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}

	s.mu.Lock()
	s.lastPlan = p
	s.lastDate = cfg.Today
	s.mu.Unlock()

	writeJSONBody(w, http.StatusOK, optimizeResponse{JobID: jobID, LoadPlan: p})
}

func (s *apiServer) handleRouteOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req routeOptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	cfg, err := s.jobConfig(req.PlanningWhse, nil, nil, req.Today)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	router := s.router
	if req.Depot != nil {
		override := *s.router
		override.Depot = plan.Depot{
			Point: geo.Point{Lat: req.Depot.Latitude, Lng: req.Depot.Longitude},
			Name:  req.Depot.Name,
		}
		router = &override
	}
	params := s.params
	if req.RoutingParams != nil {
		params = *req.RoutingParams
	}

	jobID := uuid.NewString()
	logrus.Infof("route job %s: %d rows", jobID, len(req.Rows))
	p, err := router.PlanRoutes(r.Context(), req.Rows, cfg, params)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSONBody(w, http.StatusOK, routeOptimizeResponse{JobID: jobID, RoutePlan: p})
}

func (s *apiServer) handleNoMultiStop(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSONBody(w, http.StatusOK, map[string][]string{"customers": plan.NoMultiStop.Snapshot()})
	case http.MethodPost:
		var req struct {
			Customers []string `json:"customers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		plan.NoMultiStop.Replace(req.Customers)
		logrus.Infof("no-multi-stop set replaced, %d customers", len(plan.NoMultiStop.Snapshot()))
		writeJSONBody(w, http.StatusOK, map[string][]string{"customers": plan.NoMultiStop.Snapshot()})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleExportLoadList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q, valid formats: csv, json", format))
		return
	}

	s.mu.Lock()
	p, date := s.lastPlan, s.lastDate
	s.mu.Unlock()
	if p == nil {
		writeJSONError(w, http.StatusNotFound, "no plan available yet, run an optimize first")
		return
	}

	rows := plan.BuildLoadList(p, date)
	if format == "json" {
		writeJSONBody(w, http.StatusOK, rows)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "load-list-"+date.Format("2006-01-02")+".csv"))
	if err := writeLoadListCSV(w, rows); err != nil {
		logrus.Warnf("load list export failed mid-stream: %v", err)
	}
}

// jobConfig derives the per-request planner config from the server default
// plus the request overrides.
func (s *apiServer) jobConfig(whse *[]string, weights *plan.WeightConfig, noMulti *[]string, today string) (plan.Config, error) {
	cfg := s.cfg
	if whse != nil {
		cfg.PlanningWhse = *whse
	}
	if weights != nil {
		cfg.Weights = *weights
	}
	if noMulti != nil {
		cfg.NoMultiStop = *noMulti
	}
	if today != "" {
		day, err := time.Parse("2006-01-02", today)
		if err != nil {
			return cfg, fmt.Errorf("invalid today %q, expected YYYY-MM-DD", today)
		}
		cfg.Today = day
	}
	return cfg.Normalize(), nil
}

// statusFor maps the planner's fatal error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, plan.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, plan.ErrRoutingInfeasible):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("response encoding failed: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSONBody(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the status code a handler writes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs one line per request with its status and duration.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logrus.Infof("%s %s -> %d in %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
