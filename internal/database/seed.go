package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Connections []seedConnection `yaml:"connections"`
}

type seedConnection struct {
	Name     string   `yaml:"name"`
	Protocol string   `yaml:"protocol"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	AuthType string   `yaml:"auth_type"`
	Group    string   `yaml:"group"`
	Tags     []string `yaml:"tags"`
	Favorite bool     `yaml:"favorite"`
}

// SeedFromFile imports the connection profiles listed in a YAML file.
// Profiles whose name already exists are left untouched. It returns the
// number of profiles created.
func (s *ConnectionStore) SeedFromFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	created := 0
	for _, sc := range f.Connections {
		var count int64
		if err := s.db.WithContext(ctx).Model(&Connection{}).Where("name = ?", sc.Name).Count(&count).Error; err != nil {
			return created, fmt.Errorf("check connection %q: %w", sc.Name, err)
		}
		if count > 0 {
			continue
		}
		c := &Connection{
			Name:     sc.Name,
			Protocol: sc.Protocol,
			Host:     sc.Host,
			Port:     sc.Port,
			Username: sc.Username,
			AuthType: sc.AuthType,
			Group:    sc.Group,
			Tags:     sc.Tags,
			Favorite: sc.Favorite,
		}
		if err := s.Create(ctx, c); err != nil {
			if errors.Is(err, ErrInvalid) {
				log.Printf("WARNING: skipping seed connection %q: %v", sc.Name, err)
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
