package handlers

import (
	"net/http"

	"solaudit/internal/config"
)

// ConfigHandler exposes non-sensitive app configuration to the frontend
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{config: cfg}
}

// GetAppConfig returns public application configuration
// @Summary Get app configuration
// @Description Get public application configuration for the frontend
// @Tags Configuration
// @Produce json
// @Success 200 {object} map[string]interface{} "App configuration"
// @Router /config/app [get]
func (h *ConfigHandler) GetAppConfig(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"name":                h.config.App.Name,
		"version":             h.config.App.Version,
		"environment":         h.config.App.Env,
		"enable_registration": h.config.App.EnableRegistration,
		"providers":           []string{"gemini"},
	})
}
