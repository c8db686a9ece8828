package main

import "time"

// alertCooldown is the minimum interval between repeated alerts of the same
// type to the same recipient.
const alertCooldown = time.Hour

// AlertSuppressed reports whether an alert type is still inside its cooldown
// window. A type never sent before is not suppressed.
func AlertSuppressed(alertType string, lastSent map[string]time.Time, now time.Time) bool {
	ts, ok := lastSent[alertType]
	if !ok {
		return false
	}
	return now.Sub(ts) <= alertCooldown
}
