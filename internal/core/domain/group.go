package domain

import (
	"time"

	"github.com/google/uuid"
)

// Color is the RGB badge a member carries inside a group.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Member is a user's membership in one group.
type Member struct {
	UserID   uuid.UUID
	Color    Color
	JoinedAt time.Time
}

// Group is a set of members sharing expenses.
type Group struct {
	ID        uuid.UUID
	Name      string
	Members   []Member
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberByID returns the membership for userID, or nil if the user does not
// belong to the group.
func (g *Group) MemberByID(userID uuid.UUID) *Member {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}
