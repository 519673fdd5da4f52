package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
)

type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(gdb *gorm.DB) *DLQRepository {
	return &DLQRepository{db: gdb}
}

// InsertTx parks a dead outbox row. A concurrent park of the same event loses
// on the unique index and is treated as done.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := tx.Create(&entry).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_outbox_dlq_event_id") {
			return nil
		}
		return err
	}
	return nil
}

func (r *DLQRepository) List(limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.OutboxDLQ
	err := r.db.Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
