package store

import "braidsbar/queue-service/internal/models"

var statusOrder = map[string]int{
	models.StatusWaiting:      0,
	models.StatusAlmostTurn:   1,
	models.StatusPleaseArrive: 2,
	models.StatusInService:    3,
	models.StatusCompleted:    4,
}

// ValidTransition reports whether a ticket may move from one status to another.
// Tickets move forward along the service chain, possibly skipping steps, and may
// be marked no-show from any non-terminal status. Terminal statuses are final.
func ValidTransition(from, to string) bool {
	if !models.IsKnownStatus(from) || !models.IsKnownStatus(to) {
		return false
	}
	if models.IsTerminalStatus(from) {
		return false
	}
	if to == models.StatusNoShow {
		return true
	}
	return statusOrder[to] > statusOrder[from]
}
