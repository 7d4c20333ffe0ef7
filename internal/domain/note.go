package domain

import "time"

// Note is the working copy of a document. History lives in NoteVersion;
// the live row always matches the most recent applied change.
type Note struct {
	ID        uint64
	Title     string `gorm:"size:255;not null"`
	Content   string `gorm:"type:text;not null;default:''"`
	OwnerID   uint64 `gorm:"index;not null"`
	Owner     User   `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SharedAccess grants a non-owner user a role on a note.
// At most one row per (note, user); never created for the owner.
type SharedAccess struct {
	ID        uint64
	NoteID    uint64 `gorm:"not null;uniqueIndex:idx_shared_access_note_user"`
	Note      Note   `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
	UserID    uint64 `gorm:"not null;uniqueIndex:idx_shared_access_note_user"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Role      Role   `gorm:"size:10;not null;default:'viewer'"`
	CreatedAt time.Time
}

// NoteVersion is an immutable snapshot of a note's title/content.
// VersionNumber starts at 1 and increases by exactly 1 per mutating save.
type NoteVersion struct {
	ID            uint64
	NoteID        uint64 `gorm:"index;not null"`
	Note          Note   `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
	Title         string `gorm:"size:255;not null"`
	Content       string `gorm:"type:text;not null;default:''"`
	CreatedBy     *uint64
	Creator       *User  `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL"`
	VersionNumber uint64 `gorm:"not null;default:1"`
	CreatedAt     time.Time
}

// Action labels an audit trail entry.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionShared   Action = "shared"
	ActionUnshared Action = "unshared"
	ActionRestored Action = "restored"
)

// ActivityLog is an append-only audit record of an action on a note.
// UserID is nullable so the trail survives deletion of the acting user.
type ActivityLog struct {
	ID        uint64
	NoteID    uint64 `gorm:"index;not null"`
	Note      Note   `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
	UserID    *uint64
	User      *User  `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	Action    Action `gorm:"size:20;not null"`
	Details   string `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time
}
