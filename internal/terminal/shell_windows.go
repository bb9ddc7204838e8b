//go:build windows

package terminal

func shellCommand(command string) (string, []string) {
	return "cmd", []string{"/C", command}
}
