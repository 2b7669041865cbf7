package catalog

import (
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

// MaxRecommendations caps the number of suggested listings.
const MaxRecommendations = 4

// Preference describes what the reader is looking at. ExcludeID is usually the listing
// currently on screen.
type Preference struct {
	Subject   string
	Semester  string
	ExcludeID utils.SixID
}

// Recommend picks up to MaxRecommendations available listings with a bucket fill:
// listings in the preferred subject, then listings in the preferred semester, then the most
// recent of whatever is left. With no preference it returns the most recent listings.
// Every subject match is placed before any semester-only match, and within a bucket newer
// listings come first.
func Recommend(books []models.Book, pref Preference) []models.Book {
	candidates := make([]models.Book, 0, len(books))
	for _, b := range books {
		if b.Status != models.StatusAvailable {
			continue
		}
		if !pref.ExcludeID.IsZero() && b.ID == pref.ExcludeID {
			continue
		}
		candidates = append(candidates, b)
	}
	SortNewestFirst(candidates)

	picked := make([]models.Book, 0, MaxRecommendations)
	chosen := make(map[utils.SixID]bool, MaxRecommendations)
	fill := func(match func(models.Book) bool) {
		for _, b := range candidates {
			if len(picked) == MaxRecommendations {
				return
			}
			if chosen[b.ID] || !match(b) {
				continue
			}
			picked = append(picked, b)
			chosen[b.ID] = true
		}
	}

	if pref.Subject != "" {
		fill(func(b models.Book) bool { return b.Subject == pref.Subject })
	}
	if pref.Semester != "" {
		fill(func(b models.Book) bool { return b.Semester == pref.Semester })
	}
	fill(func(models.Book) bool { return true })
	return picked
}
