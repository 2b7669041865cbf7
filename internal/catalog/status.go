// Package catalog holds the listing rules that do not depend on storage: the status state
// machine, text and categorical search, and the recommendation policy.
package catalog

import "github.com/Gomathi-Raji/campus-book-swap-main/internal/models"

// transitions maps a target status to the statuses it may be entered from.
// Sold is terminal and nothing leads back to Available.
var transitions = map[models.BookStatus][]models.BookStatus{
	models.StatusRequested: {models.StatusAvailable},
	models.StatusSold:      {models.StatusAvailable, models.StatusRequested},
}

// SourcesFor returns the statuses from which a listing may move to target.
func SourcesFor(target models.BookStatus) []models.BookStatus {
	sources := transitions[target]
	out := make([]models.BookStatus, len(sources))
	copy(out, sources)
	return out
}

// CanTransition reports whether a listing in status from may move to status to.
func CanTransition(from, to models.BookStatus) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is one of the three lifecycle states.
func IsValidStatus(s models.BookStatus) bool {
	switch s {
	case models.StatusAvailable, models.StatusRequested, models.StatusSold:
		return true
	}
	return false
}
