package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gluk-w/claworc/shellhub/internal/session"
)

var (
	ErrNotFound  = errors.New("connection not found")
	ErrInvalid   = errors.New("invalid connection")
	ErrDuplicate = errors.New("connection name already exists")
)

// ConnectionStore is the connection directory backed by the database.
type ConnectionStore struct {
	db *gorm.DB
}

func NewConnectionStore(db *gorm.DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

// Ping checks that the database is reachable.
func (s *ConnectionStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// List returns every profile, favorites first, then by name.
func (s *ConnectionStore) List(ctx context.Context) ([]Connection, error) {
	var conns []Connection
	if err := s.db.WithContext(ctx).Order("favorite DESC").Order("name ASC").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return conns, nil
}

func (s *ConnectionStore) Get(ctx context.Context, id string) (*Connection, error) {
	var c Connection
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return &c, nil
}

// Create normalizes, validates and inserts c, assigning a new id.
func (s *ConnectionStore) Create(ctx context.Context, c *Connection) error {
	if err := normalize(c); err != nil {
		return err
	}
	c.ID = newConnectionID()
	c.Status = StatusIdle
	c.LastConnectedAt = nil
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %q", ErrDuplicate, c.Name)
		}
		return fmt.Errorf("create connection: %w", err)
	}
	return nil
}

func (s *ConnectionStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Connection{})
	if res.Error != nil {
		return fmt.Errorf("delete connection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// MarkConnected stamps the profile as used at t.
func (s *ConnectionStore) MarkConnected(ctx context.Context, id string, t time.Time) error {
	res := s.db.WithContext(ctx).Model(&Connection{}).Where("id = ?", id).
		Updates(map[string]any{"status": StatusConnected, "last_connected_at": t})
	if res.Error != nil {
		return fmt.Errorf("mark connection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func normalize(c *Connection) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Host = strings.TrimSpace(c.Host)
	c.Username = strings.TrimSpace(c.Username)
	c.Protocol = string(session.ParseProtocol(c.Protocol))
	if c.Protocol == "" {
		c.Protocol = string(session.ProtocolSSH)
	}
	if c.Port == 0 {
		c.Port = 22
	}
	switch c.AuthType {
	case "":
		c.AuthType = AuthPassword
	case AuthPassword, AuthAgent:
	default:
		return fmt.Errorf("%w: unknown auth type %q", ErrInvalid, c.AuthType)
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case c.Host == "":
		return fmt.Errorf("%w: host is required", ErrInvalid)
	case c.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalid)
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	return nil
}

func newConnectionID() string {
	return "conn-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
