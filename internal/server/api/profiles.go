package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/circuito/veinscope/internal/app"
	"github.com/circuito/veinscope/internal/render"
	"github.com/circuito/veinscope/internal/store"
	"github.com/circuito/veinscope/internal/v4l2"
	"github.com/circuito/veinscope/internal/vein"
)

// settingActiveProfile is the settings key holding the last applied
// profile id.
const settingActiveProfile = "active_profile"

// ProfilesHandler handles HTTP requests for profile resources.
type ProfilesHandler struct {
	store *store.Store
	app   *app.App
}

// NewProfilesHandler creates a new ProfilesHandler with the given store.
// The pipeline is optional; without it profiles can be managed but not
// snapshotted or applied.
func NewProfilesHandler(s *store.Store, a *app.App) *ProfilesHandler {
	return &ProfilesHandler{store: s, app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// appropriate methods.
func (h *ProfilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Parse the path to determine the request shape
	// Expected paths: /api/profiles, /api/profiles/{id} or /api/profiles/{id}/apply
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/profiles
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		// Item endpoint: /api/profiles/{id}
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "apply":
		// Action endpoint: /api/profiles/{id}/apply
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.apply(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createProfileRequest struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

type updateProfileRequest struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

type profileResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	Active    bool            `json:"active"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

// profilePayload is the interpreted shape of a profile's config document.
// Absent sections are left untouched on apply.
type profilePayload struct {
	Controls      v4l2.ControlValues `json:"controls,omitempty"`
	Pipeline      *vein.Config       `json:"pipeline,omitempty"`
	Visualization *render.Config     `json:"visualization,omitempty"`
}

// toProfileResponse converts a store.Profile to a profileResponse.
func toProfileResponse(p *store.Profile, activeID string) profileResponse {
	config := json.RawMessage(p.Config)
	if p.Config == "" {
		config = json.RawMessage("{}")
	}
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Config:    config,
		Active:    p.ID == activeID,
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// activeProfileID returns the last applied profile id, or empty when none
// is recorded.
func (h *ProfilesHandler) activeProfileID() string {
	id, err := h.store.Settings().Get(settingActiveProfile)
	if err != nil {
		return ""
	}
	return id
}

// snapshot captures the current control values and both configs as a
// profile config document.
func (h *ProfilesHandler) snapshot() (string, error) {
	pipeline := h.app.PipelineConfig()
	visualization := h.app.VisualizationConfig()
	payload := profilePayload{
		Pipeline:      &pipeline,
		Visualization: &visualization,
	}

	if camera := h.app.Camera(); camera != nil {
		if panel := camera.Controls(); panel != nil {
			payload.Controls = panel.Values()
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// list handles GET /api/profiles and returns all profiles.
func (h *ProfilesHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	activeID := h.activeProfileID()
	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toProfileResponse(p, activeID))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id} and returns a single profile.
func (h *ProfilesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile, h.activeProfileID()))
}

// create handles POST /api/profiles and creates a new profile. A request
// without a config document snapshots the current tuning state.
func (h *ProfilesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate required fields
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	// Check for duplicate name
	existing, err := h.store.Profiles().GetByName(req.Name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check existing profile")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Profile name already in use")
		return
	}

	config := string(req.Config)
	if req.Config == nil && h.app != nil {
		config, err = h.snapshot()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to snapshot current state")
			return
		}
	}

	profile := &store.Profile{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Config: config,
	}

	if err := h.store.Profiles().Create(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, toProfileResponse(profile, h.activeProfileID()))
}

// update handles PUT /api/profiles/{id} and updates an existing profile.
func (h *ProfilesHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	// First, get the existing profile
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.Name != "" && req.Name != profile.Name {
		existing, err := h.store.Profiles().GetByName(req.Name)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to check existing profile")
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "Profile name already in use")
			return
		}
		profile.Name = req.Name
	}
	if req.Config != nil {
		profile.Config = string(req.Config)
	}

	if err := h.store.Profiles().Update(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile, h.activeProfileID()))
}

// delete handles DELETE /api/profiles/{id} and removes a profile.
func (h *ProfilesHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Profiles().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	// A deleted profile can no longer be the active one
	if h.activeProfileID() == id {
		h.store.Settings().Set(settingActiveProfile, "")
	}

	w.WriteHeader(http.StatusNoContent)
}

// apply handles POST /api/profiles/{id}/apply. Stored control values go
// through the panel one by one; the pipeline and visualization configs
// are swapped whole.
func (h *ProfilesHandler) apply(w http.ResponseWriter, r *http.Request, id string) {
	if h.app == nil {
		writeError(w, http.StatusServiceUnavailable, "Imaging pipeline not available")
		return
	}

	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	var payload profilePayload
	if err := json.Unmarshal([]byte(profile.Config), &payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Profile config not applicable")
		return
	}

	if len(payload.Controls) > 0 {
		if camera := h.app.Camera(); camera != nil {
			if panel := camera.Controls(); panel != nil {
				panel.Apply(payload.Controls)
			}
		}
	}
	if payload.Pipeline != nil {
		h.app.SetPipelineConfig(*payload.Pipeline)
	}
	if payload.Visualization != nil {
		h.app.SetVisualizationConfig(*payload.Visualization)
	}

	if err := h.store.Settings().Set(settingActiveProfile, profile.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record active profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile, profile.ID))
}
