//go:build !windows

package session

func defaultLocalShell() (string, []string) {
	return "/bin/sh", []string{"-i"}
}
