//go:build !windows

package terminal

func shellCommand(command string) (string, []string) {
	return "sh", []string{"-c", command}
}
