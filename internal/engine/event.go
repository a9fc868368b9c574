// Package engine evaluates care schedules and emits reminder events.
package engine

import "fmt"

// Schedule domains. Dedup keys and metrics labels are derived from these.
const (
	DomainMedication  = "medication"
	DomainInsulin     = "insulin"
	DomainMeal        = "meal"
	DomainHydration   = "hydration"
	DomainAppointment = "appointment"
)

// Event is a due-occurrence notification. Transient: constructed by the
// evaluator and consumed immediately by the alert sink, never persisted.
type Event struct {
	CallerLabel string `json:"caller_label"`
	Message     string `json:"message"`
	Domain      string `json:"domain"`
}

// Sink receives reminder events. Trigger reports whether the event was
// accepted; a false return means it was dropped (a session was busy).
type Sink interface {
	Trigger(event Event) bool
}

// DedupKey identifies one schedule occurrence on one calendar date. A new
// date naturally yields unseen keys, so fired flags need no cleanup.
func DedupKey(domain, date, itemID, discriminator string) string {
	return fmt.Sprintf("%s_%s_%s_%s", domain, date, itemID, discriminator)
}
