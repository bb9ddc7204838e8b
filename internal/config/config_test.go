package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestProcess_Defaults(t *testing.T) {
	var s Settings
	if err := Process(&s); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if s.ListenAddr != "127.0.0.1:8022" {
		t.Errorf("ListenAddr = %q", s.ListenAddr)
	}
	if s.LocalKillGrace != 3*time.Second {
		t.Errorf("LocalKillGrace = %v", s.LocalKillGrace)
	}
	if s.TerminalType != "xterm-256color" || s.TerminalCols != 80 || s.TerminalRows != 24 {
		t.Errorf("terminal = %q %dx%d", s.TerminalType, s.TerminalCols, s.TerminalRows)
	}
	if got, want := s.DatabasePath(), filepath.Join("data", "shellhub.db"); got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
	if got, want := s.LogFilePath(), filepath.Join("data", "shellhub.log"); got != want {
		t.Errorf("LogFilePath() = %q, want %q", got, want)
	}
}

func TestProcess_Overrides(t *testing.T) {
	t.Setenv("SHELLHUB_DATA_PATH", "/var/lib/shellhub")
	t.Setenv("SHELLHUB_DATABASE", "/tmp/x.db")
	t.Setenv("SHELLHUB_SSH_CONNECT_TIMEOUT", "2s")
	t.Setenv("SHELLHUB_LOCAL_KILL_GRACE", "0s")
	t.Setenv("SHELLHUB_TERMINAL_COLS", "132")

	var s Settings
	if err := Process(&s); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if s.DatabasePath() != "/tmp/x.db" {
		t.Errorf("DatabasePath() = %q", s.DatabasePath())
	}
	if s.LogFilePath() != filepath.Join("/var/lib/shellhub", "shellhub.log") {
		t.Errorf("LogFilePath() = %q", s.LogFilePath())
	}
	if s.SSHConnectTimeout != 2*time.Second {
		t.Errorf("SSHConnectTimeout = %v", s.SSHConnectTimeout)
	}
	if s.LocalKillGrace != 0 {
		t.Errorf("LocalKillGrace = %v", s.LocalKillGrace)
	}
	if s.TerminalCols != 132 {
		t.Errorf("TerminalCols = %d", s.TerminalCols)
	}
}

func TestProcess_InvalidValue(t *testing.T) {
	t.Setenv("SHELLHUB_TERMINAL_ROWS", "tall")
	var s Settings
	if err := Process(&s); err == nil {
		t.Fatal("Process should reject a non-numeric TERMINAL_ROWS")
	}
}
