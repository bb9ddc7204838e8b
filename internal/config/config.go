package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8022"`
	DataPath   string `envconfig:"DATA_PATH" default:"./data"`
	AuthToken  string `envconfig:"AUTH_TOKEN" default:""`
	SeedFile   string `envconfig:"SEED_FILE" default:""`

	// Database and LogPath default to files under DataPath when empty.
	Database string `envconfig:"DATABASE" default:""`
	LogPath  string `envconfig:"LOG_PATH" default:""`
	// LogTrimSchedule is a cron spec; the log is trimmed when it exceeds LogMaxBytes.
	LogTrimSchedule string `envconfig:"LOG_TRIM_SCHEDULE" default:"@every 1h"`
	LogMaxBytes     int64  `envconfig:"LOG_MAX_BYTES" default:"10485760"`

	// Local shell settings
	LocalShell     string        `envconfig:"LOCAL_SHELL" default:""`
	LocalKillGrace time.Duration `envconfig:"LOCAL_KILL_GRACE" default:"3s"`

	// Remote shell settings
	SSHConnectTimeout time.Duration `envconfig:"SSH_CONNECT_TIMEOUT" default:"10s"`
	TerminalType      string        `envconfig:"TERMINAL_TYPE" default:"xterm-256color"`
	TerminalCols      int           `envconfig:"TERMINAL_COLS" default:"80"`
	TerminalRows      int           `envconfig:"TERMINAL_ROWS" default:"24"`
	KnownHosts        string        `envconfig:"SSH_KNOWN_HOSTS" default:""`
	AgentSocket       string        `envconfig:"SSH_AGENT_SOCKET" default:""`

	CommandTimeout time.Duration `envconfig:"COMMAND_TIMEOUT" default:"60s"`
	MaxInputBytes  int64         `envconfig:"MAX_INPUT_BYTES" default:"65536"`
}

var Cfg Settings

func Load() {
	if err := Process(&Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}

// Process fills s from SHELLHUB_* environment variables.
func Process(s *Settings) error {
	return envconfig.Process("SHELLHUB", s)
}

func (s Settings) DatabasePath() string {
	if s.Database != "" {
		return s.Database
	}
	return filepath.Join(s.DataPath, "shellhub.db")
}

func (s Settings) LogFilePath() string {
	if s.LogPath != "" {
		return s.LogPath
	}
	return filepath.Join(s.DataPath, "shellhub.log")
}
