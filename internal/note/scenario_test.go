package note

import (
	"collaborative-notes/internal/domain"
	apiError "collaborative-notes/internal/errors"
	"collaborative-notes/redis"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory NoteRepository so workflow semantics can be
// exercised end to end without a database.
type fakeRepository struct {
	nextID     uint64
	notes      map[uint64]*domain.Note
	shares     []domain.SharedAccess
	versions   []domain.NoteVersion
	activities []domain.ActivityLog
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{notes: map[uint64]*domain.Note{}}
}

func (f *fakeRepository) id() uint64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepository) maxVersion(noteID uint64) uint64 {
	var last uint64
	for _, v := range f.versions {
		if v.NoteID == noteID && v.VersionNumber > last {
			last = v.VersionNumber
		}
	}
	return last
}

func (f *fakeRepository) appendVersion(noteID uint64, title, content string, actorID uint64) {
	f.versions = append(f.versions, domain.NoteVersion{
		ID:            f.id(),
		NoteID:        noteID,
		Title:         title,
		Content:       content,
		CreatedBy:     &actorID,
		VersionNumber: f.maxVersion(noteID) + 1,
		CreatedAt:     time.Now().UTC(),
	})
}

func (f *fakeRepository) appendActivity(noteID uint64, actorID uint64, action domain.Action, details string) {
	f.activities = append(f.activities, domain.ActivityLog{
		ID:        f.id(),
		NoteID:    noteID,
		UserID:    &actorID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
}

func (f *fakeRepository) CreateNote(ctx context.Context, ownerID uint64, note *domain.Note) error {
	note.ID = f.id()
	note.OwnerID = ownerID
	f.notes[note.ID] = note
	f.appendVersion(note.ID, note.Title, note.Content, ownerID)
	f.appendActivity(note.ID, ownerID, domain.ActionCreated, "")
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uint64) (*domain.Note, error) {
	note, ok := f.notes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *note
	return &copied, nil
}

func (f *fakeRepository) UpdateNote(ctx context.Context, note *domain.Note, actorID uint64) error {
	stored := f.notes[note.ID]
	stored.Title = note.Title
	stored.Content = note.Content
	stored.UpdatedAt = time.Now().UTC()
	f.appendVersion(note.ID, note.Title, note.Content, actorID)
	f.appendActivity(note.ID, actorID, domain.ActionUpdated, "")
	return nil
}

func (f *fakeRepository) DeleteNote(ctx context.Context, noteID uint64) error {
	delete(f.notes, noteID)
	shares := f.shares[:0]
	for _, s := range f.shares {
		if s.NoteID != noteID {
			shares = append(shares, s)
		}
	}
	f.shares = shares
	versions := f.versions[:0]
	for _, v := range f.versions {
		if v.NoteID != noteID {
			versions = append(versions, v)
		}
	}
	f.versions = versions
	activities := f.activities[:0]
	for _, a := range f.activities {
		if a.NoteID != noteID {
			activities = append(activities, a)
		}
	}
	f.activities = activities
	return nil
}

func (f *fakeRepository) RestoreVersion(ctx context.Context, note *domain.Note, target *domain.NoteVersion, actorID uint64) error {
	stored := f.notes[note.ID]
	// snapshot the pre-restore state first
	f.appendVersion(note.ID, stored.Title, stored.Content, actorID)
	stored.Title = target.Title
	stored.Content = target.Content
	stored.UpdatedAt = time.Now().UTC()
	note.Title = target.Title
	note.Content = target.Content
	f.appendActivity(note.ID, actorID, domain.ActionRestored, fmt.Sprintf("Restored to version %d", target.VersionNumber))
	return nil
}

func (f *fakeRepository) FindVersion(ctx context.Context, noteID, versionID uint64) (*domain.NoteVersion, error) {
	for _, v := range f.versions {
		if v.ID == versionID && v.NoteID == noteID {
			copied := v
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSharedRole(ctx context.Context, noteID, userID uint64) (domain.Role, error) {
	for _, s := range f.shares {
		if s.NoteID == noteID && s.UserID == userID {
			return s.Role, nil
		}
	}
	return domain.RoleNone, nil
}

func (f *fakeRepository) UpsertShare(ctx context.Context, note *domain.Note, target *domain.User, role domain.Role, actorID uint64) (bool, error) {
	for i, s := range f.shares {
		if s.NoteID == note.ID && s.UserID == target.ID {
			f.shares[i].Role = role
			f.appendActivity(note.ID, actorID, domain.ActionShared, fmt.Sprintf("Updated %s's access to %s", target.Username, role))
			return false, nil
		}
	}
	f.shares = append(f.shares, domain.SharedAccess{
		ID:        f.id(),
		NoteID:    note.ID,
		UserID:    target.ID,
		User:      *target,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	})
	f.appendActivity(note.ID, actorID, domain.ActionShared, fmt.Sprintf("Shared with %s as %s", target.Username, role))
	return true, nil
}

func (f *fakeRepository) RemoveShare(ctx context.Context, note *domain.Note, target *domain.User, actorID uint64) (bool, error) {
	for i, s := range f.shares {
		if s.NoteID == note.ID && s.UserID == target.ID {
			f.shares = append(f.shares[:i], f.shares[i+1:]...)
			f.appendActivity(note.ID, actorID, domain.ActionUnshared, fmt.Sprintf("Removed %s's access", target.Username))
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) ListCollaborators(ctx context.Context, noteID uint64) ([]domain.SharedAccess, error) {
	var rows []domain.SharedAccess
	for _, s := range f.shares {
		if s.NoteID == noteID {
			rows = append(rows, s)
		}
	}
	return rows, nil
}

func (f *fakeRepository) ListVersions(ctx context.Context, noteID uint64, limit int) ([]domain.NoteVersion, error) {
	var rows []domain.NoteVersion
	for i := len(f.versions) - 1; i >= 0 && len(rows) < limit; i-- {
		if f.versions[i].NoteID == noteID {
			rows = append(rows, f.versions[i])
		}
	}
	return rows, nil
}

func (f *fakeRepository) ListActivities(ctx context.Context, noteID uint64, limit int) ([]domain.ActivityLog, error) {
	var rows []domain.ActivityLog
	for i := len(f.activities) - 1; i >= 0 && len(rows) < limit; i-- {
		if f.activities[i].NoteID == noteID {
			rows = append(rows, f.activities[i])
		}
	}
	return rows, nil
}

func (f *fakeRepository) ListOwnNotes(ctx context.Context, userID uint64, page, pageSize int) ([]NoteSummary, NotesMeta, error) {
	var rows []NoteSummary
	for _, n := range f.notes {
		if n.OwnerID == userID {
			rows = append(rows, NoteSummary{ID: n.ID, Title: n.Title, Role: domain.RoleOwner, OwnerID: n.OwnerID})
		}
	}
	return rows, NotesMeta{Total: int64(len(rows)), CurrentPage: page, PerPage: pageSize}, nil
}

func (f *fakeRepository) ListSharedNotes(ctx context.Context, userID uint64, page, pageSize int) ([]NoteSummary, NotesMeta, error) {
	var rows []NoteSummary
	for _, s := range f.shares {
		if s.UserID == userID {
			n := f.notes[s.NoteID]
			rows = append(rows, NoteSummary{ID: n.ID, Title: n.Title, Role: s.Role, OwnerID: n.OwnerID})
		}
	}
	return rows, NotesMeta{Total: int64(len(rows)), CurrentPage: page, PerPage: pageSize}, nil
}

func (f *fakeRepository) versionCount(noteID uint64) int {
	count := 0
	for _, v := range f.versions {
		if v.NoteID == noteID {
			count++
		}
	}
	return count
}

func (f *fakeRepository) activityCount(noteID uint64, action domain.Action) int {
	count := 0
	for _, a := range f.activities {
		if a.NoteID == noteID && a.Action == action {
			count++
		}
	}
	return count
}

// fakeDirectory resolves users from a fixed set.
type fakeDirectory struct {
	users []domain.User
}

func (d *fakeDirectory) GetUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	for i := range d.users {
		if d.users[i].ID == id {
			return &d.users[i], nil
		}
	}
	return nil, apiError.NotFound("User not found", nil)
}

func (d *fakeDirectory) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for i := range d.users {
		if d.users[i].Username == username {
			return &d.users[i], nil
		}
	}
	return nil, apiError.NotFound("User not found", nil)
}

func newScenarioService(repo *fakeRepository) Service {
	dir := &fakeDirectory{users: []domain.User{
		{ID: 1, Username: "alice", Name: "Alice"},
		{ID: 2, Username: "carol", Name: "Carol"},
	}}
	return NewService(repo, dir, redis.NewCache(nil), nil)
}

func TestCreateNote_InitialVersion(t *testing.T) {
	repo := newFakeRepository()
	svc := newScenarioService(repo)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, 1, "Plan", "v1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.versionCount(created.ID))
	assert.Equal(t, "v1", repo.versions[0].Content)
	assert.Equal(t, uint64(1), repo.versions[0].VersionNumber)
	assert.Equal(t, 1, repo.activityCount(created.ID, domain.ActionCreated))
}

func TestEditNote_VersionNumbersAreGapless(t *testing.T) {
	repo := newFakeRepository()
	svc := newScenarioService(repo)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, 1, "Plan", "v1")
	require.NoError(t, err)

	const edits = 5
	for i := 0; i < edits; i++ {
		_, err := svc.EditNote(ctx, 1, created.ID, "Plan", fmt.Sprintf("rev %d", i+2))
		require.NoError(t, err)
	}

	assert.Equal(t, edits+1, repo.versionCount(created.ID))
	seen := map[uint64]bool{}
	var max uint64
	for _, v := range repo.versions {
		assert.False(t, seen[v.VersionNumber], "duplicate version number %d", v.VersionNumber)
		seen[v.VersionNumber] = true
		if v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	assert.Equal(t, uint64(edits+1), max)
	for n := uint64(1); n <= max; n++ {
		assert.True(t, seen[n], "missing version number %d", n)
	}
}

func TestRestore_AddsExactlyOneVersion(t *testing.T) {
	repo := newFakeRepository()
	svc := newScenarioService(repo)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, 1, "Plan", "v1")
	require.NoError(t, err)
	_, err = svc.EditNote(ctx, 1, created.ID, "Plan", "v2")
	require.NoError(t, err)

	before := repo.versionCount(created.ID)
	v1 := repo.versions[0] // version_number 1

	restored, err := svc.RestoreVersion(ctx, 1, created.ID, v1.ID)
	require.NoError(t, err)

	assert.Equal(t, "v1", restored.Content)
	// one pre-restore snapshot, not two rows
	assert.Equal(t, before+1, repo.versionCount(created.ID))
	// the snapshot preserved the pre-restore state
	last := repo.versions[len(repo.versions)-1]
	assert.Equal(t, "v2", last.Content)
	assert.Equal(t, uint64(3), last.VersionNumber)
}

func TestShare_UpsertKeepsSingleRow(t *testing.T) {
	repo := newFakeRepository()
	svc := newScenarioService(repo)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, 1, "Plan", "v1")
	require.NoError(t, err)

	_, err = svc.ShareNote(ctx, 1, created.ID, "carol", domain.RoleViewer)
	require.NoError(t, err)
	_, err = svc.ShareNote(ctx, 1, created.ID, "carol", domain.RoleEditor)
	require.NoError(t, err)

	assert.Len(t, repo.shares, 1)
	assert.Equal(t, domain.RoleEditor, repo.shares[0].Role)
	// both share requests are audited
	assert.Equal(t, 2, repo.activityCount(created.ID, domain.ActionShared))
}

func TestDelete_CascadesEverything(t *testing.T) {
	repo := newFakeRepository()
	svc := newScenarioService(repo)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, 1, "Plan", "v1")
	require.NoError(t, err)
	_, err = svc.EditNote(ctx, 1, created.ID, "Plan", "v2")
	require.NoError(t, err)
	_, err = svc.ShareNote(ctx, 1, created.ID, "carol", domain.RoleViewer)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, 1, created.ID))

	assert.Empty(t, repo.notes)
	assert.Empty(t, repo.shares)
	assert.Equal(t, 0, repo.versionCount(created.ID))
	assert.Empty(t, repo.activities)
}

func TestScenario_FullLifecycle(t *testing.T) {
	repo := newFakeRepository()
	svc := newScenarioService(repo)
	ctx := context.Background()

	// alice creates "Plan" with content v1
	created, err := svc.CreateNote(ctx, 1, "Plan", "v1")
	require.NoError(t, err)

	// alice edits to v2
	_, err = svc.EditNote(ctx, 1, created.ID, "Plan", "v2")
	require.NoError(t, err)

	// alice shares with carol as viewer
	_, err = svc.ShareNote(ctx, 1, created.ID, "carol", domain.RoleViewer)
	require.NoError(t, err)

	// carol attempts an edit and is denied
	_, err = svc.EditNote(ctx, 2, created.ID, "Plan", "v3")
	var apiErr *apiError.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	// alice upgrades carol to editor
	_, err = svc.ShareNote(ctx, 1, created.ID, "carol", domain.RoleEditor)
	require.NoError(t, err)

	// carol edits to v3
	_, err = svc.EditNote(ctx, 2, created.ID, "Plan", "v3")
	require.NoError(t, err)

	// restore to version 1
	var v1ID uint64
	for _, v := range repo.versions {
		if v.NoteID == created.ID && v.VersionNumber == 1 {
			v1ID = v.ID
		}
	}
	require.NotZero(t, v1ID)
	restored, err := svc.RestoreVersion(ctx, 1, created.ID, v1ID)
	require.NoError(t, err)

	assert.Equal(t, "v1", restored.Content)
	assert.Equal(t, 4, repo.versionCount(created.ID))

	// full audit trail: created, 2 updates, 2 shares, 1 restore
	view, err := svc.GetNoteView(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", view.Content)
	assert.Len(t, view.Activities, 6)
	assert.Equal(t, domain.ActionRestored, view.Activities[0].Action)
}
