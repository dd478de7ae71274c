package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/hiring"
	"github.com/frahmantamala/workshop-management/internal/tenant"
	"github.com/frahmantamala/workshop-management/internal/user"
)

var outstandingStatuses = []string{hiring.StatusPending, hiring.StatusWaitingForHire}

// HiringRepository implements the hiring.Repository interface using GORM
type HiringRepository struct {
	db *gorm.DB
}

func NewHiringRepository(db *gorm.DB) hiring.Repository {
	return &HiringRepository{db: db}
}

func (r *HiringRepository) Create(entry *hiring.QueueEntry) error {
	return r.db.Create(entry).Error
}

func (r *HiringRepository) GetByID(id int64) (*hiring.QueueEntry, error) {
	var entry hiring.QueueEntry
	err := r.db.Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrQueueEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *HiringRepository) GetOutstandingByCandidate(candidateID int64) (*hiring.QueueEntry, error) {
	var entry hiring.QueueEntry
	err := r.db.
		Where("candidate_user_id = ? AND status IN ?", candidateID, outstandingStatuses).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrQueueEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *HiringRepository) UpdateStatusGuarded(id int64, status string, employerID *int64, processedAt time.Time) (bool, error) {
	res := r.db.Model(&hiring.QueueEntry{}).
		Where("id = ? AND status IN ?", id, outstandingStatuses).
		Updates(map[string]interface{}{
			"status":           status,
			"employer_user_id": employerID,
			"processed_at":     processedAt,
			"updated_at":       processedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApproveTx commits the approval side effects in one transaction. The entry
// flip is guarded by the outstanding predicate: losing a race to a resolve or
// the sweeper aborts the whole transaction with AlreadyProcessed.
func (r *HiringRepository) ApproveTx(entry *hiring.QueueEntry, membership *tenant.Membership, candidate *user.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&hiring.QueueEntry{}).
			Where("id = ? AND status IN ?", entry.ID, outstandingStatuses).
			Updates(map[string]interface{}{
				"status":           entry.Status,
				"employer_user_id": entry.EmployerUserID,
				"service_id":       entry.ServiceID,
				"role":             entry.Role,
				"scanned_at":       entry.ScannedAt,
				"processed_at":     entry.ProcessedAt,
				"updated_at":       entry.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrAlreadyProcessed
		}

		if membership != nil {
			if err := tx.Create(membership).Error; err != nil {
				return err
			}
		}

		return tx.Save(candidate).Error
	})
}

func (r *HiringRepository) ListForEmployer(employerID int64, now time.Time) ([]*hiring.QueueEntry, error) {
	var entries []*hiring.QueueEntry
	err := r.db.
		Where("(employer_user_id IS NULL OR employer_user_id = ?) AND status <> ?", employerID, hiring.StatusExpired).
		Where("NOT (status IN ? AND expires_at < ?)", outstandingStatuses, now).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *HiringRepository) ListByCandidate(candidateID int64) ([]*hiring.QueueEntry, error) {
	var entries []*hiring.QueueEntry
	err := r.db.
		Where("candidate_user_id = ?", candidateID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *HiringRepository) CountForEmployer(employerID int64) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&hiring.QueueEntry{}).
		Select("status, count(*) as count").
		Where("employer_user_id IS NULL OR employer_user_id = ?", employerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (r *HiringRepository) ExpireOutstanding(now time.Time) (int64, error) {
	res := r.db.Model(&hiring.QueueEntry{}).
		Where("status IN ? AND expires_at < ?", outstandingStatuses, now).
		Updates(map[string]interface{}{
			"status":       hiring.StatusExpired,
			"processed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
