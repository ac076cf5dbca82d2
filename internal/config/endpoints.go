package config

import (
	"strings"

	"github.com/verte-zerg/fieldclock/internal/webhook"
)

// Default endpoint paths appended to the base URL.
const (
	PathTechnicians = "technicians"
	PathClock       = "clock"
	PathStatus      = "status"
	PathMileage     = "mileage"
	PathHistory     = "history"
	PathEdit        = "edit"
)

// ResolveEndpoints builds the endpoint URLs. An explicit per-endpoint URL
// wins; otherwise the URL is the base URL joined with the default path.
// Endpoints with neither stay empty.
func ResolveEndpoints(cfg EndpointsConfig) webhook.Endpoints {
	base := ""
	if cfg.BaseURL != nil {
		base = strings.TrimRight(strings.TrimSpace(*cfg.BaseURL), "/")
	}
	pick := func(explicit *string, path string) string {
		if explicit != nil && strings.TrimSpace(*explicit) != "" {
			return strings.TrimSpace(*explicit)
		}
		if base == "" {
			return ""
		}
		return base + "/" + path
	}
	return webhook.Endpoints{
		Technicians: pick(cfg.Technicians, PathTechnicians),
		Clock:       pick(cfg.Clock, PathClock),
		Status:      pick(cfg.Status, PathStatus),
		Mileage:     pick(cfg.Mileage, PathMileage),
		History:     pick(cfg.History, PathHistory),
		Edit:        pick(cfg.Edit, PathEdit),
	}
}
