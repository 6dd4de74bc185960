package domain

import "strings"

var healthStatusLabels = map[HealthStatus]string{
	HealthCritical: "Critical",
	HealthHealthy:  "Healthy",
	HealthExcess:   "Excess",
}

var healthStatusCodes = map[string]HealthStatus{
	"critical":  HealthCritical,
	"healthy":   HealthHealthy,
	"excess":    HealthExcess,
	"critico":   HealthCritical,
	"saludable": HealthHealthy,
	"exceso":    HealthExcess,
}

var zoneCodes = map[string]Zone{
	"red":      ZoneRed,
	"yellow":   ZoneYellow,
	"green":    ZoneGreen,
	"rojo":     ZoneRed,
	"amarillo": ZoneYellow,
	"verde":    ZoneGreen,
}

// HealthStatusLabel returns a human-readable label for a status.
func HealthStatusLabel(s HealthStatus) string {
	if label, ok := healthStatusLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// ParseHealthStatus returns the status for a given label (case-insensitive).
func ParseHealthStatus(label string) (HealthStatus, bool) {
	s, ok := healthStatusCodes[strings.ToLower(strings.TrimSpace(label))]

	return s, ok
}

// ParseZone returns the zone for a given label (case-insensitive).
func ParseZone(label string) (Zone, bool) {
	z, ok := zoneCodes[strings.ToLower(strings.TrimSpace(label))]

	return z, ok
}
