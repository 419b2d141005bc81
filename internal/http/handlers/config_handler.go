// README: Widget config handler exposes the public part of the resolved configuration.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fareflow/internal/modules/fareconfig"
)

type ConfigSource interface {
	Config() fareconfig.FareConfig
}

type ConfigHandler struct {
	cfg ConfigSource
}

func NewConfigHandler(cfg ConfigSource) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

type leadTimeResp struct {
	ThresholdMinutes float64 `json:"thresholdMinutes"`
	ImmediateLabel   string  `json:"immediateLabel"`
	ReservationLabel string  `json:"reservationLabel"`
}

type widgetConfigResp struct {
	DisplayMode     fareconfig.DisplayMode     `json:"displayMode"`
	PricingBehavior fareconfig.PricingBehavior `json:"pricingBehavior"`
	Currency        string                     `json:"currency"`
	Locale          string                     `json:"locale"`
	QuoteMessage    string                     `json:"quoteMessage"`
	StopFee         float64                    `json:"stopFee"`
	LeadTime        leadTimeResp               `json:"leadTime"`
	Vehicles        []fareconfig.Vehicle       `json:"vehicles"`
	Options         []fareconfig.Option        `json:"options"`
}

// Get omits notification settings, which only the relay needs.
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg := h.cfg.Config()
	writeJSON(c, http.StatusOK, widgetConfigResp{
		DisplayMode:     cfg.DisplayMode,
		PricingBehavior: cfg.PricingBehavior,
		Currency:        cfg.Currency,
		Locale:          cfg.Locale,
		QuoteMessage:    cfg.QuoteMessage,
		StopFee:         cfg.StopFee,
		LeadTime: leadTimeResp{
			ThresholdMinutes: cfg.LeadTime.ThresholdMinutes,
			ImmediateLabel:   cfg.LeadTime.ImmediateLabel,
			ReservationLabel: cfg.LeadTime.ReservationLabel,
		},
		Vehicles: cfg.Vehicles,
		Options:  cfg.Options,
	})
}
