// Package domain contains pure business types without external dependencies.
package domain

import "time"

// Visibility controls who may pull from a repository.
type Visibility string

const (
	// VisibilityPublic repositories can be pulled by anyone.
	VisibilityPublic Visibility = "PUBLIC"
	// VisibilityPrivate repositories can only be pulled by their owner.
	VisibilityPrivate Visibility = "PRIVATE"
)

// User is an authenticated account as far as the token server cares:
// an identity that may own repositories.
type User struct {
	ID       string
	Username string
}

// Repository is the metadata record for an image repository.
//
// Official repositories are addressed by a bare single-segment name
// (e.g. "ubuntu") and may have no owner. User repositories are always
// addressed as "owner/name".
type Repository struct {
	ID            string
	OwnerID       string // empty for unowned official repositories
	OwnerUsername string
	Name          string
	Visibility    Visibility
	IsOfficial    bool
	PullCount     int64
}

// FullName returns the name the registry protocol uses to address the
// repository.
func (r *Repository) FullName() string {
	if r.IsOfficial || r.OwnerUsername == "" {
		return r.Name
	}
	return r.OwnerUsername + "/" + r.Name
}

// IsPublic reports whether anonymous pulls are allowed.
func (r *Repository) IsPublic() bool {
	return r.Visibility == VisibilityPublic
}

// OwnedBy reports whether u owns the repository.
func (r *Repository) OwnedBy(u *User) bool {
	return u != nil && r.OwnerID != "" && r.OwnerID == u.ID
}

// Tag is a named reference to an image manifest within a repository.
// Unique per (RepositoryID, Name); pushing an existing tag overwrites
// digest and size.
type Tag struct {
	ID           string
	RepositoryID string
	Name         string
	Digest       string
	Size         int64
	CreatedAt    time.Time
}
