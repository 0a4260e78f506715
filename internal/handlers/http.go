package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"vehicle-control-service/internal/action"
	"vehicle-control-service/internal/gateway"
	"vehicle-control-service/internal/service"

	"github.com/gorilla/mux"
)

// HTTPHandler handles HTTP requests for the vehicle control service
type HTTPHandler struct {
	controlService *service.ControlService
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(controlService *service.ControlService) *HTTPHandler {
	return &HTTPHandler{
		controlService: controlService,
	}
}

// RegisterRoutes sets up HTTP routes
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/api/vehicles", h.ListVehicles).Methods("GET")
	router.HandleFunc("/api/vehicle/{id}/status", h.VehicleStatus).Methods("GET")
	router.HandleFunc("/api/vehicle/{id}/control", h.ControlVehicle).Methods("POST")
	router.HandleFunc("/api/vehicle/{id}/history", h.VehicleHistory).Methods("GET")
	router.HandleFunc("/api/control/logs", h.ListControlLogs).Methods("GET")
	router.HandleFunc("/api/control/logs", h.ClearControlLogs).Methods("DELETE")
	router.HandleFunc("/api/gateway/health", h.GatewayHealth).Methods("GET")
}

// Health returns service health status
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListVehicles returns the vehicles owned by the current user
func (h *HTTPHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}

	vehicles, err := h.controlService.ListVehicles(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "vehicles": vehicles})
}

// VehicleStatus returns the reconciled snapshot for one vehicle. An empty
// vehicle list is a distinguished empty state, not an error.
func (h *HTTPHandler) VehicleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	vehicleID := mux.Vars(r)["id"]

	snap, err := h.controlService.GetStatus(r.Context(), userID, vehicleID)
	if err != nil {
		if errors.Is(err, gateway.ErrNoVehicle) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "reason": "no_vehicle"})
			return
		}
		writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": snap})
}

type controlRequest struct {
	Action   string         `json:"action"`
	Params   map[string]any `json:"params,omitempty"`
	Property string         `json:"property,omitempty"`
	Value    any            `json:"value,omitempty"`
}

// ControlVehicle dispatches one control command, degrading to simulation
// when the remote gateway cannot serve it.
func (h *HTTPHandler) ControlVehicle(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	vehicleID := mux.Vars(r)["id"]

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode control request", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Accept either an action name with parameters or a raw property/value
	// pair; the raw form is folded into the normalizer's direct path.
	name := req.Action
	params := req.Params
	if name == "" && req.Property != "" {
		name = req.Property
		params = map[string]any{"value": req.Value}
	}
	if name == "" {
		http.Error(w, "action or property is required", http.StatusBadRequest)
		return
	}

	if !h.verifyOwnership(w, r, vehicleID) {
		return
	}

	slog.Info("Control request received",
		"user_id", userID,
		"vehicle_id", vehicleID,
		"action", name)

	snap, message, err := h.controlService.Perform(r.Context(), userID, vehicleID, name, params)
	if err != nil {
		if errors.Is(err, action.ErrUnsupportedAction) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			return
		}
		if errors.Is(err, gateway.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": err.Error()})
			return
		}
		slog.Error("Control request failed", "user_id", userID, "vehicle_id", vehicleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"status":  snap,
	})
}

// VehicleHistory reads the remotely persisted control history.
func (h *HTTPHandler) VehicleHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}
	vehicleID := mux.Vars(r)["id"]

	if !h.verifyOwnership(w, r, vehicleID) {
		return
	}

	limit := queryInt(r, "limit", 50)
	page := queryInt(r, "page", 1)

	history, err := h.controlService.History(r.Context(), vehicleID, limit, page)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": history})
}

// ListControlLogs returns the local bounded control log, most recent first
func (h *HTTPHandler) ListControlLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 200)

	entries, err := h.controlService.ListLog(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": entries})
}

// ClearControlLogs drops the local control log for the current user
func (h *HTTPHandler) ClearControlLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.controlService.ClearLog(r.Context(), userID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GatewayHealth probes the remote car-api service
func (h *HTTPHandler) GatewayHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.controlService.GatewayHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success":        false,
			"gateway_status": "unhealthy",
			"error":          err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"gateway_status": "healthy",
	})
}

// userID extracts the ambient credential. Requests without one are rejected.
func (h *HTTPHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "missing user credential", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// verifyOwnership checks the vehicle against the user's owned list. When
// the list itself is unreachable the check is skipped; the control path
// degrades to simulation anyway and the remote side re-checks on dispatch.
func (h *HTTPHandler) verifyOwnership(w http.ResponseWriter, r *http.Request, vehicleID string) bool {
	owned, err := h.controlService.VerifyOwnership(r.Context(), vehicleID)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			http.Error(w, "credential rejected", http.StatusUnauthorized)
			return false
		}
		return true
	}

	if !owned {
		http.Error(w, "not authorized for this vehicle", http.StatusForbidden)
		return false
	}

	return true
}

func writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": err.Error()})
	case errors.Is(err, gateway.ErrNoVehicle):
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": err.Error()})
	case errors.Is(err, gateway.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
