//go:build windows

package session

func defaultLocalShell() (string, []string) {
	return "cmd", []string{"/K"}
}
