package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fieldunit/fwwatch/pkg/controller"
	"github.com/fieldunit/fwwatch/pkg/device"
)

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type deviceResponse struct {
	Type       string `json:"type"`
	Version    int    `json:"version"`
	State      string `json:"state"`
	LastResult string `json:"last_result"`
	ActiveTask string `json:"active_task,omitempty"`
}

type taskResponse struct {
	ID        string     `json:"id"`
	Target    int        `json:"target"`
	Requested time.Time  `json:"requested"`
	Finished  *time.Time `json:"finished,omitempty"`
	Result    string     `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type stateRequest struct {
	State string `json:"state"`
}

type updateRequest struct {
	Target *int `json:"target"`
}

func toDeviceResponse(d device.Device, active *controller.Task) deviceResponse {
	resp := deviceResponse{
		Type:       d.Type,
		Version:    d.Version,
		State:      d.State.String(),
		LastResult: d.LastResult.String(),
	}
	if active != nil {
		resp.ActiveTask = active.ID
	}
	return resp
}

func toTaskResponse(t *controller.Task) taskResponse {
	resp := taskResponse{
		ID:        t.ID,
		Target:    t.Target,
		Requested: t.Requested,
	}
	if finished, ok := t.Finished(); ok {
		resp.Finished = &finished
		resp.Result = t.Reason()
		if err := t.Err(); err != nil {
			resp.Error = err.Error()
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		http.Error(w, "failed handling request", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &errorResponse{Message: msg, Code: status})
}
