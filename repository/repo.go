package repository

import (
	"context"
	"database/sql"
	"errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"praxis-recording/constant"
	"praxis-recording/entities"
	"time"
)

// ErrNoRowsAffected is returned by conditional updates whose WHERE clause no
// longer matches, typically because another request changed the status first.
var ErrNoRowsAffected = errors.New("no rows affected")

type RecordingRepository interface {
	Transaction(ctx context.Context, callback func(repo RecordingRepository) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB
	FindPersonalAccount(ctx context.Context, userId uuid.UUID) (*entities.Account, error)
	FindActiveRecording(ctx context.Context, accountId uuid.UUID) (*entities.Recording, error)
	FindRecording(ctx context.Context, id uuid.UUID, accountId uuid.UUID) (*entities.Recording, error)
	CreateRecording(ctx context.Context, recording *entities.Recording) error
	UpdateActiveRecording(ctx context.Context, id uuid.UUID, accountId uuid.UUID, updates map[string]interface{}) error
	DeleteRecording(ctx context.Context, id uuid.UUID, accountId uuid.UUID) error
	CreateSession(ctx context.Context, session *entities.Session) error
	UpsertRecordingChunk(ctx context.Context, chunk *entities.RecordingChunk) (*entities.RecordingChunk, error)
	GetRecordingChunks(ctx context.Context, recordingId uuid.UUID) ([]entities.RecordingChunk, error)
	PauseStaleRecordings(ctx context.Context, heartbeatBefore time.Time, now time.Time) (int64, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) RecordingRepository {
	return &repo{
		db: db,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Transaction(ctx context.Context, callback func(repo RecordingRepository) error, opts ...*sql.TxOptions) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return callback(&repo{db: tx})
	}, opts...)
}

func activeStatuses() []string {
	statuses := make([]string, 0, len(constant.ActiveRecordingStatuses))
	for _, s := range constant.ActiveRecordingStatuses {
		statuses = append(statuses, s.String())
	}
	return statuses
}

func (r *repo) FindPersonalAccount(ctx context.Context, userId uuid.UUID) (*entities.Account, error) {
	account := &entities.Account{}
	err := r.db.WithContext(ctx).
		Where("primary_owner_user_id = ? AND is_personal_account = ?", userId, true).
		First(account).Error
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (r *repo) FindActiveRecording(ctx context.Context, accountId uuid.UUID) (*entities.Recording, error) {
	recording := &entities.Recording{}
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status IN ?", accountId, activeStatuses()).
		Order("created_at DESC").
		First(recording).Error
	if err != nil {
		return nil, err
	}

	return recording, nil
}

func (r *repo) FindRecording(ctx context.Context, id uuid.UUID, accountId uuid.UUID) (*entities.Recording, error) {
	recording := &entities.Recording{}
	err := r.db.WithContext(ctx).First(recording, "id = ? AND account_id = ?", id, accountId).Error
	if err != nil {
		return nil, err
	}

	return recording, nil
}

func (r *repo) CreateRecording(ctx context.Context, recording *entities.Recording) error {
	if recording.ID == uuid.Nil {
		recording.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(recording).Error
}

// UpdateActiveRecording applies updates only while the recording is still in
// an active status, so a concurrent complete or abort cannot be overwritten.
func (r *repo) UpdateActiveRecording(ctx context.Context, id uuid.UUID, accountId uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&entities.Recording{}).
		Where("id = ? AND account_id = ? AND status IN ?", id, accountId, activeStatuses()).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

// DeleteRecording removes the chunk rows explicitly before the recording so the
// cascade does not depend on foreign-key enforcement being enabled.
func (r *repo) DeleteRecording(ctx context.Context, id uuid.UUID, accountId uuid.UUID) error {
	return r.Transaction(ctx, func(tx RecordingRepository) error {
		db := tx.GetDB()
		if err := db.Where("recording_id = ? AND account_id = ?", id, accountId).Delete(&entities.RecordingChunk{}).Error; err != nil {
			return err
		}

		result := db.Where("id = ? AND account_id = ? AND status IN ?", id, accountId, activeStatuses()).Delete(&entities.Recording{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNoRowsAffected
		}
		return nil
	})
}

func (r *repo) CreateSession(ctx context.Context, session *entities.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(session).Error
}

// UpsertRecordingChunk inserts the chunk or, when the same chunk number was
// already stored for the recording, refreshes its timing and storage location.
func (r *repo) UpsertRecordingChunk(ctx context.Context, chunk *entities.RecordingChunk) (*entities.RecordingChunk, error) {
	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recording_id"}, {Name: "chunk_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"start_time", "end_time", "storage_bucket", "storage_path", "updated_at"}),
	}).Create(chunk).Error
	if err != nil {
		return nil, err
	}

	stored := &entities.RecordingChunk{}
	err = r.db.WithContext(ctx).
		First(stored, "recording_id = ? AND chunk_number = ?", chunk.RecordingId, chunk.ChunkNumber).Error
	if err != nil {
		return nil, err
	}

	return stored, nil
}

func (r *repo) GetRecordingChunks(ctx context.Context, recordingId uuid.UUID) ([]entities.RecordingChunk, error) {
	chunks := []entities.RecordingChunk{}
	err := r.db.WithContext(ctx).Where("recording_id = ?", recordingId).Order("chunk_number ASC").Find(&chunks).Error
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// PauseStaleRecordings moves recordings whose client stopped sending heartbeats
// into the paused state. The heartbeat timestamp is left untouched.
func (r *repo) PauseStaleRecordings(ctx context.Context, heartbeatBefore time.Time, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entities.Recording{}).
		Where("status = ? AND last_heartbeat_at < ?", constant.RecordingStatusRecording.String(), heartbeatBefore).
		Updates(map[string]interface{}{
			"status":     constant.RecordingStatusPaused,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
