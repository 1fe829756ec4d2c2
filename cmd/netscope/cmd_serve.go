package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/netscope-network/netscope/pkg/broadcast"
	"github.com/netscope-network/netscope/pkg/executor"
	"github.com/netscope-network/netscope/pkg/inventory"
	"github.com/netscope-network/netscope/pkg/topology"
	"github.com/netscope-network/netscope/pkg/util"
)

// startJobRequest is the POST /api/jobs body.
type startJobRequest struct {
	DeviceIDs      []string `json:"device_ids,omitempty"`
	Commands       []string `json:"commands,omitempty"`
	BatchSize      int      `json:"batch_size,omitempty"`
	DevicesPerHour int      `json:"devices_per_hour,omitempty"`
	HealthCheck    bool     `json:"health_check,omitempty"`
}

func newServeCmd() *cobra.Command {
	var (
		listen        string
		inventoryPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and progress stream",
		Long: `Serve hosts the job API and the WebSocket progress stream.

  GET  /api/jobs                  all jobs
  POST /api/jobs                  start a job
  GET  /api/jobs/{id}             one job's progress
  POST /api/jobs/{id}/stop        request cooperative cancellation
  GET  /api/executions            past executions
  POST /api/topology/build        transform the latest execution
  GET  /api/jumphost              jumphost status
  GET  /ws                        progress stream (optional ?job_id=...)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := inventory.Load(inventoryPath)
			if err != nil {
				return err
			}

			eng, err := newEngine(app)
			if err != nil {
				return err
			}
			defer eng.close()

			srv := &server{engine: eng, devices: devices}

			r := mux.NewRouter()
			r.HandleFunc("/api/jobs", srv.listJobs).Methods(http.MethodGet)
			r.HandleFunc("/api/jobs", srv.startJob).Methods(http.MethodPost)
			r.HandleFunc("/api/jobs/{id}", srv.getJob).Methods(http.MethodGet)
			r.HandleFunc("/api/jobs/{id}/stop", srv.stopJob).Methods(http.MethodPost)
			r.HandleFunc("/api/executions", srv.listExecutions).Methods(http.MethodGet)
			r.HandleFunc("/api/topology/build", srv.buildTopology).Methods(http.MethodPost)
			r.HandleFunc("/api/jumphost", srv.jumphostStatus).Methods(http.MethodGet)
			r.HandleFunc("/ws", broadcast.WSHandler(eng.broadcaster)).Methods(http.MethodGet)

			httpSrv := &http.Server{
				Addr:         listen,
				Handler:      r,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 0, // websocket streams stay open
			}
			util.Logger.Infof("netscope server listening on %s (%d devices in inventory)", listen, len(devices))
			return httpSrv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "Listen address")
	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "", "Device inventory YAML (required)")
	cmd.MarkFlagRequired("inventory")
	return cmd
}

type server struct {
	engine  *engine
	devices []inventory.Device
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.jobs.List())
}

func (s *server) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.engine.jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *server) stopJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.engine.jobs.StopJob(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job_id": id, "status": "stopping"})
}

func (s *server) startJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	devices := s.devices
	if len(req.DeviceIDs) > 0 {
		wanted := make(map[string]bool, len(req.DeviceIDs))
		for _, id := range req.DeviceIDs {
			wanted[id] = true
		}
		devices = nil
		for _, d := range s.devices {
			if wanted[d.ID] {
				devices = append(devices, d)
			}
		}
		if len(devices) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("no matching devices"))
			return
		}
	}

	jobID, execID, err := s.engine.executor.Start(devices, executor.Options{
		Commands:       req.Commands,
		BatchSize:      req.BatchSize,
		DevicesPerHour: req.DevicesPerHour,
		HealthGate:     req.HealthCheck,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":       jobID,
		"execution_id": execID,
	})
}

func (s *server) listExecutions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	current := ""
	if cur, err := s.engine.store.Current(); err == nil {
		current = cur.ID
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"executions": ids,
		"current":    current,
	})
}

func (s *server) buildTopology(w http.ResponseWriter, r *http.Request) {
	exec, err := s.engine.store.Current()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	valid := inventory.Names(s.devices)
	topo, err := topology.NewBuilder().Build(exec, valid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	set, err := topology.NewTransformer().Transform(exec, valid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	store := topology.NewStore(app.redisAddr, app.redisDB)
	defer store.Close()
	if err := store.Connect(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err := store.SaveTopology(topo); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := store.SaveInterfaces(set); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"execution_id": exec.ID,
		"metadata":     topo.Metadata,
		"interfaces":   len(set.Interfaces),
	})
}

func (s *server) jumphostStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.jumphost.Status())
}
