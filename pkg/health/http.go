package health

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/ledgersync/pkg/events"
)

// Handler serves /healthz, /readyz and /events for the syncer process,
// reporting the supervisor's current Status and recent lifecycle history.
type Handler struct {
	status   *Status
	recorder *events.Recorder
}

// NewHandler creates a health HTTP handler backed by status. recorder may
// be nil, in which case /events reports an empty history.
func NewHandler(status *Status, recorder *events.Recorder) *Handler {
	return &Handler{status: status, recorder: recorder}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.serveLiveness)
	mux.HandleFunc("/readyz", h.serveReadiness)
	mux.HandleFunc("/events", h.serveEvents)
}

func (h *Handler) serveLiveness(w http.ResponseWriter, r *http.Request) {
	snap := h.status.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if !snap.Alive() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(snap)
}

func (h *Handler) serveEvents(w http.ResponseWriter, r *http.Request) {
	var recent []events.Event
	if h.recorder != nil {
		recent = h.recorder.Recent()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recent)
}

func (h *Handler) serveReadiness(w http.ResponseWriter, r *http.Request) {
	snap := h.status.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if !snap.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(snap)
}
