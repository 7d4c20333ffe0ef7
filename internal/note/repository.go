package note

import (
	"collaborative-notes/internal/domain"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NoteRepository defines data access for notes and their history. Every
// mutating method runs as one transaction: the note write, its version row
// and its activity row commit together or not at all.
type NoteRepository interface {
	CreateNote(ctx context.Context, ownerID uint64, note *domain.Note) error
	FindByID(ctx context.Context, id uint64) (*domain.Note, error)
	UpdateNote(ctx context.Context, note *domain.Note, actorID uint64) error
	DeleteNote(ctx context.Context, noteID uint64) error
	RestoreVersion(ctx context.Context, note *domain.Note, target *domain.NoteVersion, actorID uint64) error
	FindVersion(ctx context.Context, noteID, versionID uint64) (*domain.NoteVersion, error)
	GetSharedRole(ctx context.Context, noteID, userID uint64) (domain.Role, error)
	UpsertShare(ctx context.Context, note *domain.Note, target *domain.User, role domain.Role, actorID uint64) (created bool, err error)
	RemoveShare(ctx context.Context, note *domain.Note, target *domain.User, actorID uint64) (removed bool, err error)
	ListCollaborators(ctx context.Context, noteID uint64) ([]domain.SharedAccess, error)
	ListVersions(ctx context.Context, noteID uint64, limit int) ([]domain.NoteVersion, error)
	ListActivities(ctx context.Context, noteID uint64, limit int) ([]domain.ActivityLog, error)
	ListOwnNotes(ctx context.Context, userID uint64, page, pageSize int) ([]NoteSummary, NotesMeta, error)
	ListSharedNotes(ctx context.Context, userID uint64, page, pageSize int) ([]NoteSummary, NotesMeta, error)
}

type NotesMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

// NoteSummary is a list row: the note plus the reader's role and owner name.
type NoteSummary struct {
	ID        uint64      `json:"id"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Role      domain.Role `json:"role"`
	OwnerID   uint64      `json:"owner_id"`
	OwnerName string      `json:"owner_name"`
}

type NoteRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new note repository
func NewRepository(db *gorm.DB) NoteRepository {
	return &NoteRepositoryImpl{db: db}
}

// nextVersionNumber reads the current maximum inside tx so concurrent saves
// can never allocate the same number.
func nextVersionNumber(tx *gorm.DB, noteID uint64) (uint64, error) {
	var last uint64
	err := tx.Model(&domain.NoteVersion{}).
		Where("note_id = ?", noteID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// CreateNote inserts the note, its version #1 and the `created` activity.
func (r *NoteRepositoryImpl) CreateNote(ctx context.Context, ownerID uint64, note *domain.Note) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		note.OwnerID = ownerID
		note.CreatedAt = now
		note.UpdatedAt = now

		if err := tx.Create(note).Error; err != nil {
			return err
		}

		version := domain.NoteVersion{
			NoteID:        note.ID,
			Title:         note.Title,
			Content:       note.Content,
			CreatedBy:     &ownerID,
			VersionNumber: 1,
			CreatedAt:     now,
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		activity := domain.ActivityLog{
			NoteID:    note.ID,
			UserID:    &ownerID,
			Action:    domain.ActionCreated,
			CreatedAt: now,
		}
		return tx.Create(&activity).Error
	})
}

func (r *NoteRepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Note, error) {
	var note domain.Note
	err := r.db.WithContext(ctx).First(&note, id).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote applies new title/content and appends the next version and the
// `updated` activity.
func (r *NoteRepositoryImpl) UpdateNote(ctx context.Context, note *domain.Note, actorID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		note.UpdatedAt = now

		if err := tx.Model(&domain.Note{}).
			Where("id = ?", note.ID).
			Updates(map[string]any{
				"title":      note.Title,
				"content":    note.Content,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		versionNum, err := nextVersionNumber(tx, note.ID)
		if err != nil {
			return err
		}

		version := domain.NoteVersion{
			NoteID:        note.ID,
			Title:         note.Title,
			Content:       note.Content,
			CreatedBy:     &actorID,
			VersionNumber: versionNum,
			CreatedAt:     now,
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		activity := domain.ActivityLog{
			NoteID:    note.ID,
			UserID:    &actorID,
			Action:    domain.ActionUpdated,
			CreatedAt: now,
		}
		return tx.Create(&activity).Error
	})
}

// DeleteNote removes the note and everything hanging off it in one
// transaction. The audit trail does not survive the note it describes.
func (r *NoteRepositoryImpl) DeleteNote(ctx context.Context, noteID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", noteID).Delete(&domain.SharedAccess{}).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id = ?", noteID).Delete(&domain.NoteVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id = ?", noteID).Delete(&domain.ActivityLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Note{}, noteID).Error
	})
}

// RestoreVersion snapshots the current state as a new version, then
// overwrites the note with the target version's content. The snapshot is
// what makes a restore itself undoable.
func (r *NoteRepositoryImpl) RestoreVersion(ctx context.Context, note *domain.Note, target *domain.NoteVersion, actorID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		versionNum, err := nextVersionNumber(tx, note.ID)
		if err != nil {
			return err
		}

		snapshot := domain.NoteVersion{
			NoteID:        note.ID,
			Title:         note.Title,
			Content:       note.Content,
			CreatedBy:     &actorID,
			VersionNumber: versionNum,
			CreatedAt:     now,
		}
		if err := tx.Create(&snapshot).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.Note{}).
			Where("id = ?", note.ID).
			Updates(map[string]any{
				"title":      target.Title,
				"content":    target.Content,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		note.Title = target.Title
		note.Content = target.Content
		note.UpdatedAt = now

		activity := domain.ActivityLog{
			NoteID:    note.ID,
			UserID:    &actorID,
			Action:    domain.ActionRestored,
			Details:   fmt.Sprintf("Restored to version %d", target.VersionNumber),
			CreatedAt: now,
		}
		return tx.Create(&activity).Error
	})
}

// FindVersion looks a version up scoped to its note, so a version id from
// another note resolves as not found.
func (r *NoteRepositoryImpl) FindVersion(ctx context.Context, noteID, versionID uint64) (*domain.NoteVersion, error) {
	var version domain.NoteVersion
	err := r.db.WithContext(ctx).
		Where("id = ? AND note_id = ?", versionID, noteID).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetSharedRole returns the stored role for (note, user), RoleNone if absent.
func (r *NoteRepositoryImpl) GetSharedRole(ctx context.Context, noteID, userID uint64) (domain.Role, error) {
	var role string
	err := r.db.WithContext(ctx).Model(&domain.SharedAccess{}).
		Where("note_id = ? AND user_id = ?", noteID, userID).
		Select("role").
		Scan(&role).Error
	if err != nil {
		return domain.RoleNone, err
	}
	if role == "" {
		return domain.RoleNone, nil
	}
	return domain.Role(role), nil
}

// UpsertShare creates or updates the (note, user) grant and appends the
// `shared` activity. Returns whether a new row was created.
func (r *NoteRepositoryImpl) UpsertShare(ctx context.Context, note *domain.Note, target *domain.User, role domain.Role, actorID uint64) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var existing int64
		if err := tx.Model(&domain.SharedAccess{}).
			Where("note_id = ? AND user_id = ?", note.ID, target.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		created = existing == 0

		access := domain.SharedAccess{
			NoteID:    note.ID,
			UserID:    target.ID,
			Role:      role,
			CreatedAt: now,
		}
		// ON CONFLICT keeps a concurrent duplicate insert from failing the
		// whole request; it degrades into the role update.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "note_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"role": role}),
		}).Create(&access).Error; err != nil {
			return err
		}

		details := fmt.Sprintf("Shared with %s as %s", target.Username, role)
		if !created {
			details = fmt.Sprintf("Updated %s's access to %s", target.Username, role)
		}
		activity := domain.ActivityLog{
			NoteID:    note.ID,
			UserID:    &actorID,
			Action:    domain.ActionShared,
			Details:   details,
			CreatedAt: now,
		}
		return tx.Create(&activity).Error
	})
	return created, err
}

// RemoveShare deletes the grant if present and appends the `unshared`
// activity. A missing grant is a no-op, not an error.
func (r *NoteRepositoryImpl) RemoveShare(ctx context.Context, note *domain.Note, target *domain.User, actorID uint64) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("note_id = ? AND user_id = ?", note.ID, target.ID).
			Delete(&domain.SharedAccess{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true

		activity := domain.ActivityLog{
			NoteID:    note.ID,
			UserID:    &actorID,
			Action:    domain.ActionUnshared,
			Details:   fmt.Sprintf("Removed %s's access", target.Username),
			CreatedAt: time.Now().UTC(),
		}
		return tx.Create(&activity).Error
	})
	return removed, err
}

func (r *NoteRepositoryImpl) ListCollaborators(ctx context.Context, noteID uint64) ([]domain.SharedAccess, error) {
	var rows []domain.SharedAccess
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("note_id = ?", noteID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *NoteRepositoryImpl) ListVersions(ctx context.Context, noteID uint64, limit int) ([]domain.NoteVersion, error) {
	var versions []domain.NoteVersion
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Where("note_id = ?", noteID).
		Order("version_number DESC").
		Limit(limit).
		Find(&versions).Error
	return versions, err
}

func (r *NoteRepositoryImpl) ListActivities(ctx context.Context, noteID uint64, limit int) ([]domain.ActivityLog, error) {
	var activities []domain.ActivityLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("note_id = ?", noteID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

func (r *NoteRepositoryImpl) ListOwnNotes(ctx context.Context, userID uint64, page, pageSize int) ([]NoteSummary, NotesMeta, error) {
	var summaries []NoteSummary
	var totalRecords int64

	// Count total records
	if err := r.db.WithContext(ctx).Model(&domain.Note{}).
		Where("owner_id = ?", userID).
		Count(&totalRecords).Error; err != nil {
		return summaries, NotesMeta{}, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).Model(&domain.Note{}).
		Select("notes.id, notes.title, notes.created_at, notes.updated_at, 'owner' AS role, notes.owner_id, users.name AS owner_name").
		Joins("JOIN users ON users.id = notes.owner_id").
		Where("notes.owner_id = ?", userID).
		Order("notes.updated_at DESC").
		Offset(offset).
		Limit(pageSize).
		Scan(&summaries).Error

	return summaries, buildMeta(totalRecords, page, pageSize), err
}

func (r *NoteRepositoryImpl) ListSharedNotes(ctx context.Context, userID uint64, page, pageSize int) ([]NoteSummary, NotesMeta, error) {
	var summaries []NoteSummary
	var totalRecords int64

	base := r.db.WithContext(ctx).Model(&domain.Note{}).
		Joins("JOIN shared_accesses ON shared_accesses.note_id = notes.id").
		Where("shared_accesses.user_id = ?", userID)

	if err := base.Count(&totalRecords).Error; err != nil {
		return summaries, NotesMeta{}, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).Model(&domain.Note{}).
		Select("notes.id, notes.title, notes.created_at, notes.updated_at, shared_accesses.role AS role, notes.owner_id, users.name AS owner_name").
		Joins("JOIN shared_accesses ON shared_accesses.note_id = notes.id").
		Joins("JOIN users ON users.id = notes.owner_id").
		Where("shared_accesses.user_id = ?", userID).
		Order("notes.updated_at DESC").
		Offset(offset).
		Limit(pageSize).
		Scan(&summaries).Error

	return summaries, buildMeta(totalRecords, page, pageSize), err
}

func buildMeta(total int64, page, pageSize int) NotesMeta {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return NotesMeta{
		Total:       total,
		PerPage:     pageSize,
		TotalPage:   totalPages,
		CurrentPage: page,
	}
}
