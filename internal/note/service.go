package note

import (
	"collaborative-notes/internal/domain"
	"collaborative-notes/internal/errors"
	"collaborative-notes/internal/worker"
	"collaborative-notes/redis"
	"context"
	defError "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// historyLimit is how many versions/activities the note view returns.
const historyLimit = 10

type Service interface {
	CreateNote(ctx context.Context, actorID uint64, title, content string) (*domain.Note, error)
	GetNoteView(ctx context.Context, actorID, noteID uint64) (*NoteViewResponse, error)
	EditNote(ctx context.Context, actorID, noteID uint64, title, content string) (*domain.Note, error)
	DeleteNote(ctx context.Context, actorID, noteID uint64) error
	ShareNote(ctx context.Context, actorID, noteID uint64, username string, role domain.Role) (*ShareResult, error)
	UnshareNote(ctx context.Context, actorID, noteID, targetUserID uint64) error
	RestoreVersion(ctx context.Context, actorID, noteID, versionID uint64) (*domain.Note, error)
	ListOwnNotes(ctx context.Context, userID uint64, page, pageSize int) (*PaginatedNotes, error)
	ListSharedNotes(ctx context.Context, userID uint64, page, pageSize int) ([]NoteSummary, NotesMeta, error)
	EffectiveRole(ctx context.Context, actorID uint64, note *domain.Note) (domain.Role, error)
}

// UserDirectory is the collaborator lookup contract the sharing workflow
// depends on. The user package provides it.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uint64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type DefaultService struct {
	repository NoteRepository
	directory  UserDirectory
	cache      *redis.Cache
	workers    *worker.WorkerPool
}

func NewService(
	repository NoteRepository,
	directory UserDirectory,
	cache *redis.Cache,
	workers *worker.WorkerPool,
) Service {
	return &DefaultService{
		repository: repository,
		directory:  directory,
		cache:      cache,
		workers:    workers,
	}
}

// EffectiveRole resolves the permission an actor holds on a note. Ownership
// is implicit and supersedes any stored grant.
func (s *DefaultService) EffectiveRole(ctx context.Context, actorID uint64, note *domain.Note) (domain.Role, error) {
	if note.OwnerID == actorID {
		return domain.RoleOwner, nil
	}
	return s.repository.GetSharedRole(ctx, note.ID, actorID)
}

func (s *DefaultService) fetchNote(ctx context.Context, noteID uint64) (*domain.Note, error) {
	note, err := s.repository.FindByID(ctx, noteID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Note not found", err)
		}
		return nil, err
	}
	return note, nil
}

// bumpListCache invalidates the owner's cached note lists after a commit.
func (s *DefaultService) bumpListCache(ownerID uint64) {
	versionKey := fmt.Sprintf("user:%d:notes:version", ownerID)
	if s.workers == nil {
		s.cache.IncrementVersion(context.Background(), versionKey)
		return
	}
	s.workers.Submit(func(ctx context.Context) error {
		s.cache.IncrementVersion(ctx, versionKey)
		return nil
	})
}

func (s *DefaultService) CreateNote(ctx context.Context, actorID uint64, title, content string) (*domain.Note, error) {
	if title == "" {
		return nil, errors.UnprocessableEntity("Title cannot be empty", nil)
	}

	note := &domain.Note{
		Title:   title,
		Content: content,
	}
	if err := s.repository.CreateNote(ctx, actorID, note); err != nil {
		return nil, err
	}

	s.bumpListCache(actorID)
	return note, nil
}

func (s *DefaultService) EditNote(ctx context.Context, actorID, noteID uint64, title, content string) (*domain.Note, error) {
	if title == "" {
		return nil, errors.UnprocessableEntity("Title cannot be empty", nil)
	}

	note, err := s.fetchNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	role, err := s.EffectiveRole(ctx, actorID, note)
	if err != nil {
		return nil, err
	}
	if !role.CanEdit() {
		return nil, errors.Forbidden("You do not have permission to edit this note", nil)
	}

	note.Title = title
	note.Content = content
	if err := s.repository.UpdateNote(ctx, note, actorID); err != nil {
		return nil, err
	}

	s.bumpListCache(note.OwnerID)
	return note, nil
}

func (s *DefaultService) DeleteNote(ctx context.Context, actorID, noteID uint64) error {
	note, err := s.fetchNote(ctx, noteID)
	if err != nil {
		return err
	}

	role, err := s.EffectiveRole(ctx, actorID, note)
	if err != nil {
		return err
	}
	if !role.IsOwner() {
		return errors.Forbidden("Only the owner can delete this note", nil)
	}

	if err := s.repository.DeleteNote(ctx, noteID); err != nil {
		return err
	}

	s.bumpListCache(note.OwnerID)
	return nil
}

func (s *DefaultService) RestoreVersion(ctx context.Context, actorID, noteID, versionID uint64) (*domain.Note, error) {
	note, err := s.fetchNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	role, err := s.EffectiveRole(ctx, actorID, note)
	if err != nil {
		return nil, err
	}
	if !role.CanEdit() {
		return nil, errors.Forbidden("You do not have permission to restore versions", nil)
	}

	// scoped to the note; a foreign version id is simply not found
	target, err := s.repository.FindVersion(ctx, noteID, versionID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Version not found", err)
		}
		return nil, err
	}

	if err := s.repository.RestoreVersion(ctx, note, target, actorID); err != nil {
		return nil, err
	}

	s.bumpListCache(note.OwnerID)
	return note, nil
}

// ShareResult reports what a share request did. Warning is set for the
// self-share case, which completes without creating anything.
type ShareResult struct {
	Created      bool             `json:"created"`
	Message      string           `json:"message,omitempty"`
	Warning      string           `json:"warning,omitempty"`
	Collaborator *CollaboratorDTO `json:"collaborator,omitempty"`
}

func (s *DefaultService) ShareNote(ctx context.Context, actorID, noteID uint64, username string, role domain.Role) (*ShareResult, error) {
	if !domain.ValidSharedRole(role) {
		return nil, errors.UnprocessableEntity("Role must be viewer or editor", nil)
	}

	note, err := s.fetchNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	actorRole, err := s.EffectiveRole(ctx, actorID, note)
	if err != nil {
		return nil, err
	}
	if !actorRole.IsOwner() {
		return nil, errors.Forbidden("Only the owner can share this note", nil)
	}

	target, err := s.directory.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if target.ID == actorID {
		return &ShareResult{
			Warning: "You cannot share a note with yourself",
		}, nil
	}

	created, err := s.repository.UpsertShare(ctx, note, target, role, actorID)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Note shared with %s as %s.", target.Username, role)
	if !created {
		message = fmt.Sprintf("Updated %s's access to %s.", target.Username, role)
	}

	return &ShareResult{
		Created: created,
		Message: message,
		Collaborator: &CollaboratorDTO{
			User: UserDTO{
				ID:       target.ID,
				Name:     target.Name,
				Username: target.Username,
				Email:    target.Email,
			},
			Role: role,
		},
	}, nil
}

func (s *DefaultService) UnshareNote(ctx context.Context, actorID, noteID, targetUserID uint64) error {
	note, err := s.fetchNote(ctx, noteID)
	if err != nil {
		return err
	}

	role, err := s.EffectiveRole(ctx, actorID, note)
	if err != nil {
		return err
	}
	if !role.IsOwner() {
		return errors.Forbidden("Only the owner can manage sharing", nil)
	}

	target, err := s.directory.GetUserByID(ctx, targetUserID)
	if err != nil {
		return err
	}

	// a missing grant is a silent no-op
	_, err = s.repository.RemoveShare(ctx, note, target, actorID)
	return err
}

type UserDTO struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type CollaboratorDTO struct {
	User     UserDTO     `json:"user"`
	Role     domain.Role `json:"role"`
	SharedAt time.Time   `json:"shared_at"`
}

type VersionDTO struct {
	ID            uint64    `json:"id"`
	VersionNumber uint64    `json:"version_number"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ActivityDTO struct {
	ID        uint64        `json:"id"`
	Action    domain.Action `json:"action"`
	Details   string        `json:"details,omitempty"`
	User      string        `json:"user,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// NoteViewResponse is the full note detail: working copy, the reader's
// resolved role, collaborators, and the latest history.
type NoteViewResponse struct {
	ID            uint64            `json:"id"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	OwnerID       uint64            `json:"owner_id"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Role          domain.Role       `json:"role"`
	IsOwner       bool              `json:"is_owner"`
	CanEdit       bool              `json:"can_edit"`
	Collaborators []CollaboratorDTO `json:"collaborators"`
	Versions      []VersionDTO      `json:"versions"`
	Activities    []ActivityDTO     `json:"activities"`
}

func (s *DefaultService) GetNoteView(ctx context.Context, actorID, noteID uint64) (*NoteViewResponse, error) {
	note, err := s.fetchNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	role, err := s.EffectiveRole(ctx, actorID, note)
	if err != nil {
		return nil, err
	}
	if !role.CanView() {
		return nil, errors.Forbidden("You do not have access to this note", nil)
	}

	collaborators, err := s.repository.ListCollaborators(ctx, noteID)
	if err != nil {
		return nil, err
	}

	versions, err := s.repository.ListVersions(ctx, noteID, historyLimit)
	if err != nil {
		return nil, err
	}

	activities, err := s.repository.ListActivities(ctx, noteID, historyLimit)
	if err != nil {
		return nil, err
	}

	return &NoteViewResponse{
		ID:            note.ID,
		Title:         note.Title,
		Content:       note.Content,
		OwnerID:       note.OwnerID,
		CreatedAt:     note.CreatedAt,
		UpdatedAt:     note.UpdatedAt,
		Role:          role,
		IsOwner:       role.IsOwner(),
		CanEdit:       role.CanEdit(),
		Collaborators: toCollaboratorDTOs(collaborators),
		Versions:      toVersionDTOs(versions),
		Activities:    toActivityDTOs(activities),
	}, nil
}

type PaginatedNotes struct {
	Data []NoteSummary `json:"data"`
	Meta NotesMeta     `json:"meta"`
}

func (s *DefaultService) ListOwnNotes(ctx context.Context, userID uint64, page, pageSize int) (*PaginatedNotes, error) {
	// Get the current data version for this user's notes
	versionKey := fmt.Sprintf("user:%d:notes:version", userID)
	v := s.cache.GetVersion(ctx, versionKey)

	cacheKey := fmt.Sprintf("notes:u:%d:v:%d:p:%d:ps:%d", userID, v, page, pageSize)

	var result PaginatedNotes
	found, _ := s.cache.Get(ctx, cacheKey, &result)
	if found {
		return &result, nil
	}

	notes, meta, err := s.repository.ListOwnNotes(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	result = PaginatedNotes{Data: notes, Meta: meta}

	// fill cache off the request path
	if s.workers != nil {
		s.workers.Submit(func(ctx context.Context) error {
			return s.cache.Set(ctx, cacheKey, result, 24*time.Hour)
		})
	}

	return &result, nil
}

func (s *DefaultService) ListSharedNotes(ctx context.Context, userID uint64, page, pageSize int) ([]NoteSummary, NotesMeta, error) {
	notes, meta, err := s.repository.ListSharedNotes(ctx, userID, page, pageSize)
	if err != nil {
		return []NoteSummary{}, NotesMeta{}, err
	}
	return notes, meta, nil
}

func toCollaboratorDTOs(rows []domain.SharedAccess) []CollaboratorDTO {
	dtos := make([]CollaboratorDTO, 0, len(rows))
	for _, r := range rows {
		dtos = append(dtos, CollaboratorDTO{
			User: UserDTO{
				ID:       r.User.ID,
				Name:     r.User.Name,
				Username: r.User.Username,
				Email:    r.User.Email,
			},
			Role:     r.Role,
			SharedAt: r.CreatedAt,
		})
	}
	return dtos
}

func toVersionDTOs(versions []domain.NoteVersion) []VersionDTO {
	dtos := make([]VersionDTO, 0, len(versions))
	for _, v := range versions {
		dto := VersionDTO{
			ID:            v.ID,
			VersionNumber: v.VersionNumber,
			Title:         v.Title,
			Content:       v.Content,
			CreatedAt:     v.CreatedAt,
		}
		if v.Creator != nil {
			dto.CreatedBy = v.Creator.Username
		}
		dtos = append(dtos, dto)
	}
	return dtos
}

func toActivityDTOs(activities []domain.ActivityLog) []ActivityDTO {
	dtos := make([]ActivityDTO, 0, len(activities))
	for _, a := range activities {
		dto := ActivityDTO{
			ID:        a.ID,
			Action:    a.Action,
			Details:   a.Details,
			CreatedAt: a.CreatedAt,
		}
		if a.User != nil {
			dto.User = a.User.Username
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
