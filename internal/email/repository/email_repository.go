package repository

import (
	"errors"
	"time"

	emaildomain "mailsense-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows a user's email listing.
type ListFilter struct {
	Skip       int
	Limit      int
	UnreadOnly bool
}

// EmailRepository persists processed email records. Single-record lookups
// return (nil, nil) when nothing matches.
type EmailRepository interface {
	Create(record *emaildomain.EmailRecord) error
	ExistsByMessageID(messageID string) (bool, error)
	GetByMessageID(messageID string) (*emaildomain.EmailRecord, error)
	GetByID(userID, id string) (*emaildomain.EmailRecord, error)
	GetByMessageIDs(userID string, messageIDs []string) ([]emaildomain.EmailRecord, error)
	List(userID string, filter ListFilter) ([]emaildomain.EmailRecord, int64, error)
	ListRecent(userID string, limit int) ([]emaildomain.EmailRecord, error)
}

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{db: db}
}

func (r *emailRepository) Create(record *emaildomain.EmailRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	return r.db.Create(record).Error
}

func (r *emailRepository) ExistsByMessageID(messageID string) (bool, error) {
	var count int64
	err := r.db.Model(&emaildomain.EmailRecord{}).Where("message_id = ?", messageID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *emailRepository) GetByMessageID(messageID string) (*emaildomain.EmailRecord, error) {
	var record emaildomain.EmailRecord
	err := r.db.Where("message_id = ?", messageID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *emailRepository) GetByID(userID, id string) (*emaildomain.EmailRecord, error) {
	var record emaildomain.EmailRecord
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *emailRepository) GetByMessageIDs(userID string, messageIDs []string) ([]emaildomain.EmailRecord, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var records []emaildomain.EmailRecord
	err := r.db.Where("user_id = ? AND message_id IN ?", userID, messageIDs).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *emailRepository) List(userID string, filter ListFilter) ([]emaildomain.EmailRecord, int64, error) {
	query := r.db.Model(&emaildomain.EmailRecord{}).Where("user_id = ?", userID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []emaildomain.EmailRecord
	err := query.Order("received_at DESC").
		Offset(filter.Skip).
		Limit(filter.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListRecent returns up to limit newest records, the candidate window for
// in-memory fuzzy matching.
func (r *emailRepository) ListRecent(userID string, limit int) ([]emaildomain.EmailRecord, error) {
	var records []emaildomain.EmailRecord
	err := r.db.Where("user_id = ?", userID).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
