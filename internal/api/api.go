// Package api exposes discovery over HTTP: a synchronous discover endpoint,
// the rolling inventory, and a health probe.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"netscribe/internal/discover"
	"netscribe/internal/report"
	"netscribe/internal/snmp"
)

// API serves discovery requests over HTTP.
type API struct {
	router      *mux.Router
	store       *report.Store
	log         *zap.Logger
	concurrency int

	community string
	port      uint16

	sessionOpts []discover.Option
}

// Settings carries the per-server defaults applied to targets that do not
// override them.
type Settings struct {
	Community   string
	Port        uint16
	Timeout     time.Duration
	Retries     int
	Concurrency int
}

// NewAPI creates the API server and registers its routes. Extra session
// options come after the transport defaults, so callers may override the
// dialer.
func NewAPI(store *report.Store, settings Settings, log *zap.Logger, opts ...discover.Option) *API {
	if log == nil {
		log = zap.NewNop()
	}
	sessionOpts := append([]discover.Option{
		discover.WithClientOptions(
			snmp.WithTimeout(settings.Timeout),
			snmp.WithRetries(settings.Retries)),
	}, opts...)
	a := &API{
		router:      mux.NewRouter(),
		store:       store,
		log:         log,
		concurrency: settings.Concurrency,
		community:   settings.Community,
		port:        settings.Port,
		sessionOpts: sessionOpts,
	}
	a.registerRoutes()
	return a
}

func (a *API) registerRoutes() {
	a.router.HandleFunc("/api/discover", a.handleDiscover).Methods("POST")
	a.router.HandleFunc("/api/inventory", a.handleInventory).Methods("GET")
	a.router.HandleFunc("/api/health", a.handleHealth).Methods("GET")
}

// Router returns the configured HTTP handler.
func (a *API) Router() *mux.Router {
	return a.router
}

type discoverRequest struct {
	Targets []discover.Target `json:"targets"`
}

type discoverResponse struct {
	SessionDir string            `json:"sessionDir,omitempty"`
	Results    []*discover.Result `json:"results"`
	Failures   map[string]string  `json:"failures,omitempty"`
}

// handleDiscover handles POST /api/discover. The request blocks until every
// target finished; failed targets are reported alongside successful ones.
func (a *API) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Targets) == 0 {
		http.Error(w, "no targets given", http.StatusBadRequest)
		return
	}
	for i := range req.Targets {
		if req.Targets[i].Address == "" {
			http.Error(w, fmt.Sprintf("target %d has no address", i), http.StatusBadRequest)
			return
		}
		if req.Targets[i].Community == "" {
			req.Targets[i].Community = a.community
		}
		if req.Targets[i].Port == 0 {
			req.Targets[i].Port = a.port
		}
	}

	outcomes := discover.ExploreAll(r.Context(), req.Targets, a.concurrency, a.log, a.sessionOpts...)

	resp := discoverResponse{}
	var ok []*discover.Result
	for _, o := range outcomes {
		if o.Err != nil {
			if resp.Failures == nil {
				resp.Failures = map[string]string{}
			}
			resp.Failures[o.Target.Address] = o.Err.Error()
			continue
		}
		ok = append(ok, o.Result)
		resp.Results = append(resp.Results, o.Result)
	}

	if a.store != nil && len(ok) > 0 {
		sess, err := a.store.NewSession(ok[0].SessionID)
		if err != nil {
			a.log.Error("failed to create report session", zap.Error(err))
		} else {
			for _, res := range ok {
				if err := a.store.SaveResult(sess, res); err != nil {
					a.log.Error("failed to save result",
						zap.String("target", res.Target), zap.Error(err))
				}
			}
			resp.SessionDir = sess.Path
		}
		if err := a.store.MergeInventory(ok, time.Now()); err != nil {
			a.log.Error("failed to merge inventory", zap.Error(err))
		}
	}

	respondJSON(w, resp)
}

// handleInventory handles GET /api/inventory.
func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		http.Error(w, "no report store configured", http.StatusNotFound)
		return
	}
	inv, err := a.store.LoadInventory()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load inventory: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, inv)
}

// handleHealth handles GET /api/health.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}
