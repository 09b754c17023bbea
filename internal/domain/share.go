package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a member's role within a share.
type Role string

const (
	RoleAdmin  Role = "admin"  // the share owner
	RoleMember Role = "member" // everyone else
)

// RoleFor returns the role a client holds on a share owned by ownerID.
func RoleFor(clientID, ownerID string) Role {
	if clientID != "" && clientID == ownerID {
		return RoleAdmin
	}
	return RoleMember
}

// Share is the authoritative shared record for one trip.
// ID and TripID are distinct: only ID is used for lookup and subscription.
type Share struct {
	ID           uuid.UUID
	TripID       string
	Payload      *Payload // nil until the first push
	Enabled      bool
	PasswordHash string // empty when no password is required
	OwnerID      string
	BannedIDs    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsBanned reports whether clientID appears in the share's ban list.
func (s Share) IsBanned(clientID string) bool {
	for _, id := range s.BannedIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// NewShare is the input to share creation.
type NewShare struct {
	Payload      Payload
	PasswordHash string
	OwnerID      string
	OwnerName    string
}

// Member is a presence entry: a client currently viewing a share.
type Member struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	JoinedAt   time.Time `json:"joinedAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Snapshot is what every subscriber receives on each change of a share.
type Snapshot struct {
	ShareID      string    `json:"shareId"`
	Payload      *Payload  `json:"payload,omitempty"`
	Enabled      bool      `json:"enabled"`
	OwnerID      string    `json:"ownerId"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Members      []Member  `json:"members"`
	BannedIDs    []string  `json:"bannedIds"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsBanned reports whether clientID appears in the snapshot's ban list.
func (s Snapshot) IsBanned(clientID string) bool {
	for _, id := range s.BannedIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// NewSnapshot builds the subscriber view of a share and its current members.
func NewSnapshot(s Share, members []Member) Snapshot {
	if members == nil {
		members = []Member{}
	}
	banned := s.BannedIDs
	if banned == nil {
		banned = []string{}
	}
	return Snapshot{
		ShareID:      s.ID.String(),
		Payload:      s.Payload,
		Enabled:      s.Enabled,
		OwnerID:      s.OwnerID,
		PasswordHash: s.PasswordHash,
		Members:      members,
		BannedIDs:    banned,
		UpdatedAt:    s.UpdatedAt,
	}
}
