package models

import "time"

// PresenceStatus reports whether a team member is reachable.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
	PresenceAway    PresenceStatus = "away"
)

// TeamMember is an entry of the team roster.
type TeamMember struct {
	ID         string         `json:"id" gorm:"primaryKey;size:64"`
	Name       string         `json:"name" gorm:"size:128"`
	Role       string         `json:"role" gorm:"size:128"`
	Avatar     string         `json:"avatar" gorm:"size:512"`
	Status     PresenceStatus `json:"status" gorm:"size:16"`
	Bio        string         `json:"bio" gorm:"type:text"`
	LastActive time.Time      `json:"last_active"`
}

// TableName overrides the default table name.
func (TeamMember) TableName() string {
	return "team_members"
}

// Operator is an account allowed to change farm state through the API.
type Operator struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         string    `json:"role" gorm:"size:32;default:operator"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName overrides the default table name.
func (Operator) TableName() string {
	return "operators"
}
