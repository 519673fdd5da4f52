package outbox

import "gorm.io/gorm/clause"

// lockSkipLocked claims batch rows without blocking concurrent publishers.
func lockSkipLocked() clause.Locking {
	return clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}
}
