package catalog

import (
	"sort"
	"strings"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
)

// Matches reports whether book passes every dimension of filter.
// Within the query dimension a hit on title, subject or description is enough.
func Matches(book models.Book, filter models.BookFilter) bool {
	if filter.Status != "" && book.Status != filter.Status {
		return false
	}
	if !matchesCategory(book.Subject, filter.Subject) || !matchesCategory(book.Semester, filter.Semester) {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(book.Title), q) ||
		strings.Contains(strings.ToLower(book.Subject), q) ||
		strings.Contains(strings.ToLower(book.Description), q)
}

func matchesCategory(value, want string) bool {
	return want == "" || want == models.FilterAll || value == want
}

// Search returns the books matching filter, newest first. The input slice is left untouched
// and books posted at the same instant keep their input order.
func Search(books []models.Book, filter models.BookFilter) []models.Book {
	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if Matches(b, filter) {
			out = append(out, b)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders books by PostedAt descending, keeping ties stable.
func SortNewestFirst(books []models.Book) {
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].PostedAt.After(books[j].PostedAt)
	})
}
