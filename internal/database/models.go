package database

import (
	"time"

	"github.com/gluk-w/claworc/shellhub/internal/session"
)

// Auth types of a connection profile.
const (
	AuthPassword = "password"
	AuthAgent    = "agent"
)

// Connection statuses.
const (
	StatusIdle      = "idle"
	StatusConnected = "connected"
)

// Connection is a saved connection profile. Passwords are never stored; they
// are supplied when a session is created.
type Connection struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"uniqueIndex;not null" json:"name"`
	Protocol        string     `gorm:"not null;default:ssh" json:"protocol"`
	Host            string     `gorm:"not null" json:"host"`
	Port            int        `gorm:"not null;default:22" json:"port"`
	Username        string     `gorm:"not null" json:"username"`
	AuthType        string     `gorm:"not null;default:password" json:"auth_type"`
	Group           string     `gorm:"column:group_name;default:''" json:"group"`
	Tags            []string   `gorm:"serializer:json" json:"tags"`
	Favorite        bool       `gorm:"not null;default:false" json:"favorite"`
	Status          string     `gorm:"not null;default:idle" json:"status"`
	LastConnectedAt *time.Time `json:"last_connected_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Descriptor returns the endpoint the session manager connects to.
func (c *Connection) Descriptor() session.ConnectionDescriptor {
	return session.ConnectionDescriptor{
		ID:       c.ID,
		Name:     c.Name,
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Protocol: session.ParseProtocol(c.Protocol),
	}
}
