package controller

import (
	"net/http"

	"github.com/bassista/posdit/internal/config"
	"github.com/bassista/posdit/internal/scheduler"
	"github.com/gin-gonic/gin"
)

// ConfigurationResponse is the non-secret part of the running configuration.
type ConfigurationResponse struct {
	RedditMode         string `json:"redditMode"`
	MailMode           string `json:"mailMode"`
	PollIntervalSec    int    `json:"pollIntervalSec"`
	OnMissingSubreddit string `json:"onMissingSubreddit"`
	DedupPolicy        string `json:"dedupPolicy"`
	EventHistory       int    `json:"eventHistory"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

// NewConfigurationController creates a new ConfigurationController.
func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration returns the monitor settings. Credentials are never exposed.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	response := ConfigurationResponse{
		RedditMode:         cc.config.Reddit.Mode,
		MailMode:           cc.config.Mail.Mode,
		PollIntervalSec:    int(scheduler.PollInterval.Seconds()),
		OnMissingSubreddit: cc.config.Monitor.OnMissingSubreddit,
		DedupPolicy:        cc.config.Monitor.DedupPolicy,
		EventHistory:       cc.config.Monitor.EventHistory,
	}
	c.JSON(http.StatusOK, response)
}
