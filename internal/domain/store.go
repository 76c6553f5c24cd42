package domain

import "time"

// CatalogStore is the local persistent cache (BoltDB).
// Reads never touch the network.
type CatalogStore interface {
	// === Tag vocabulary ===
	GetVocabulary() ([]string, time.Time, bool)
	SaveVocabulary(tags []string) error

	// === Pages (keyed by offset/limit) ===
	GetPage(offset, limit int) (Page, bool)
	SavePage(offset, limit int, page Page) error

	// === Invalidation ===
	InvalidatePages()
	InvalidateAll()

	Close() error
}
