package logging

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/robfig/cron/v3"
)

// TrimIfLarger cuts the log file down to roughly its newest maxBytes/2 bytes
// once it grows beyond maxBytes. It reports whether the file was trimmed.
func TrimIfLarger(maxBytes int64) (bool, error) {
	mu.Lock()
	defer mu.Unlock()

	if logPath == "" || maxBytes <= 0 {
		return false, nil
	}
	info, err := os.Stat(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() <= maxBytes {
		return false, nil
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		return false, fmt.Errorf("read log file: %w", err)
	}
	tail := data[int64(len(data))-maxBytes/2:]
	// Start on a line boundary.
	if i := bytes.IndexByte(tail, '\n'); i >= 0 {
		tail = tail[i+1:]
	}

	if logFile != nil {
		if err := logFile.Truncate(0); err != nil {
			return false, fmt.Errorf("truncate log file: %w", err)
		}
		if _, err := logFile.Seek(0, 0); err != nil {
			return false, fmt.Errorf("seek log file: %w", err)
		}
		if _, err := logFile.Write(tail); err != nil {
			return false, fmt.Errorf("rewrite log file: %w", err)
		}
		return true, nil
	}
	if err := os.WriteFile(logPath, tail, 0644); err != nil {
		return false, fmt.Errorf("rewrite log file: %w", err)
	}
	return true, nil
}

// StartTrimmer runs TrimIfLarger on the given cron schedule. The returned
// func stops the scheduler and waits for a running trim to finish.
func StartTrimmer(schedule string, maxBytes int64) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		trimmed, err := TrimIfLarger(maxBytes)
		if err != nil {
			log.Printf("WARNING: trim log file: %v", err)
			return
		}
		if trimmed {
			log.Printf("Log file exceeded %d bytes and was trimmed", maxBytes)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("log trim schedule %q: %w", schedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
