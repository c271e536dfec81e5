package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is the validated content of one source file, fields already trimmed.
type Record struct {
	FirstName string
	LastName  string
	BirthTS   string
}

// User is the canonical reconciled entity. UserID comes from the source file stem.
// ImagePath is empty when no portrait was found.
type User struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthTS   string `json:"birthts"`
	ImagePath string `json:"img_path"`
}

// NewUser combines a validated record with its identity and image reference.
func NewUser(userID string, rec Record, imagePath string) User {
	return User{
		UserID:    userID,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		BirthTS:   rec.BirthTS,
		ImagePath: imagePath,
	}
}

// SameValues reports whether every mutable field matches.
func (u User) SameValues(other User) bool {
	return u.FirstName == other.FirstName &&
		u.LastName == other.LastName &&
		u.BirthTS == other.BirthTS &&
		u.ImagePath == other.ImagePath
}

// HasImage reports whether a portrait reference is recorded.
func (u User) HasImage() bool {
	return u.ImagePath != ""
}

// SnapshotRow returns the user in published column order.
func (u User) SnapshotRow() []string {
	return []string{u.UserID, u.FirstName, u.LastName, u.BirthTS, u.ImagePath}
}

// SnapshotHeader is the fixed header of the published snapshot.
var SnapshotHeader = []string{"user_id", "first_name", "last_name", "birthts", "img_path"}

// StoredUser is a persisted user with its surrogate key.
type StoredUser struct {
	ID int64
	User
}

// UserView is the per-user body returned by the query endpoint, keyed by user_id.
type UserView struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthTS   string `json:"birthts"`
	ImagePath string `json:"img_path"`
}

// View drops the key so the user can be placed in a map keyed by UserID.
func (u User) View() UserView {
	return UserView{FirstName: u.FirstName, LastName: u.LastName, BirthTS: u.BirthTS, ImagePath: u.ImagePath}
}

// Action describes what reconciliation did with a record.
type Action string

const (
	ActionInserted  Action = "inserted"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// Outcome is the result of reconciling one user.
type Outcome struct {
	Action Action
	User   User
}

// Message mirrors the per-file detail printed by the operator CLI.
func (o Outcome) Message() string {
	switch o.Action {
	case ActionInserted:
		return fmt.Sprintf("Added a new row for %s", o.User.UserID)
	case ActionUpdated:
		return fmt.Sprintf("Updated the row for %s", o.User.UserID)
	default:
		return fmt.Sprintf("No change for %s", o.User.UserID)
	}
}

// Filter narrows the query result. Nil fields are not applied.
type Filter struct {
	HasImage *bool
	MinAge   *float64
	MaxAge   *float64
}

// FileFailure records why a source object was not processed.
type FileFailure struct {
	Object  string `json:"object"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PassResult summarizes one pass. Total counts every listed source file;
// Success counts files that were validated, reconciled and staged.
type PassResult struct {
	PassID        uuid.UUID     `json:"pass_id"`
	Trigger       string        `json:"trigger"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Total         int           `json:"total"`
	Success       int           `json:"success"`
	Inserted      int           `json:"inserted"`
	Updated       int           `json:"updated"`
	Unchanged     int           `json:"unchanged"`
	MissingImages int           `json:"missing_images"`
	Published     bool          `json:"published"`
	Error         string        `json:"error,omitempty"`
	Failures      []FileFailure `json:"failures"`
}

// Message is the human readable summary returned by the trigger endpoint.
func (r PassResult) Message() string {
	return fmt.Sprintf("Out of %d files for the users, %d were successfully processed.", r.Total, r.Success)
}

// Duration is the wall time of the pass.
func (r PassResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Triggers identify what started a pass.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerCLI      = "cli"
)
