// Package server exposes the controller over HTTP alongside the Prometheus
// metrics endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fieldunit/fwwatch/pkg/controller"
	"github.com/fieldunit/fwwatch/pkg/device"
	"github.com/fieldunit/fwwatch/pkg/logging"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Controller is the part of the device controller served here.
type Controller interface {
	Snapshot() device.Device
	Active() *controller.Task
	RequestUpdate(target int) (*controller.Task, error)
	Task(id string) *controller.Task
	SetHoldingState(state device.State) error
}

type Server struct {
	log    logging.Logger
	ctl    Controller
	router *mux.Router
}

func New(log logging.Logger, ctl Controller, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		log:    log,
		ctl:    ctl,
		router: mux.NewRouter(),
	}
	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/device", s.getDevice).Methods(http.MethodGet)
	api.HandleFunc("/device/state", s.putState).Methods(http.MethodPut)
	api.HandleFunc("/device/update", s.postUpdate).Methods(http.MethodPost)
	api.HandleFunc("/device/update/{id}", s.getUpdate).Methods(http.MethodGet)
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("serving status api")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "status api stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "unable to shut down status api")
	}
	s.log.Debug("status api stopped")
	return nil
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toDeviceResponse(s.ctl.Snapshot(), s.ctl.Active()))
}

func (s *Server) putState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "couldn't parse JSON request")
		return
	}
	state, err := device.ParseState(req.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.ctl.SetHoldingState(state)
	switch errors.Cause(err) {
	case nil:
	case controller.ErrInvalidHoldingState:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case controller.ErrDeviceBusy:
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		s.log.WithError(err).Error("unable to set holding state")
		writeError(w, http.StatusInternalServerError, "unable to set holding state")
		return
	}
	writeJSON(w, http.StatusOK, toDeviceResponse(s.ctl.Snapshot(), s.ctl.Active()))
}

func (s *Server) postUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "couldn't parse JSON request")
		return
	}
	if req.Target == nil {
		writeError(w, http.StatusBadRequest, "target version is required")
		return
	}

	task, err := s.ctl.RequestUpdate(*req.Target)
	switch errors.Cause(err) {
	case nil:
	case controller.ErrInvalidTarget:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case controller.ErrUpdateInProgress:
		writeError(w, http.StatusConflict, err.Error())
		return
	case controller.ErrClosed:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		s.log.WithError(err).Error("unable to request update")
		writeError(w, http.StatusInternalServerError, "unable to request update")
		return
	}
	w.Header().Set("Location", "/v1/device/update/"+task.ID)
	writeJSON(w, http.StatusAccepted, toTaskResponse(task))
}

func (s *Server) getUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task := s.ctl.Task(id)
	if task == nil {
		writeError(w, http.StatusNotFound, "update "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}
