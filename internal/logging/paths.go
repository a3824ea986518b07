package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.partsearch/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".partsearch", "logs")
	}
	return filepath.Join(home, ".partsearch", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// WorkerLogPath returns the background worker log path.
func WorkerLogPath() string {
	return filepath.Join(DefaultLogDir(), "worker.log")
}

// LogSource represents the source of logs to view.
type LogSource string

const (
	// LogSourceGo is the HTTP server logs (default).
	LogSourceGo LogSource = "go"
	// LogSourceWorker is the background ingestion worker logs.
	LogSourceWorker LogSource = "worker"
	// LogSourceAll combines all log sources.
	LogSourceAll LogSource = "all"
)

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.partsearch/logs/server.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	// Try global path
	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Server may not have run yet.\nExpected at: %s", globalPath)
}

// FindLogFileBySource finds log files based on the source type.
// Returns a list of log file paths that exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	// Explicit path takes precedence
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	var paths []string
	var checked []string

	switch source {
	case LogSourceGo:
		goPath := DefaultLogPath()
		checked = append(checked, goPath)
		if _, err := os.Stat(goPath); err == nil {
			paths = append(paths, goPath)
		}

	case LogSourceWorker:
		workerPath := WorkerLogPath()
		checked = append(checked, workerPath)
		if _, err := os.Stat(workerPath); err == nil {
			paths = append(paths, workerPath)
		}

	case LogSourceAll:
		goPath := DefaultLogPath()
		workerPath := WorkerLogPath()
		checked = append(checked, goPath, workerPath)

		if _, err := os.Stat(goPath); err == nil {
			paths = append(paths, goPath)
		}
		if _, err := os.Stat(workerPath); err == nil {
			paths = append(paths, workerPath)
		}

	default:
		return nil, fmt.Errorf("unknown log source: %s (use: go, worker, all)", source)
	}

	if len(paths) == 0 {
		hint := getLogHint(source)
		return nil, fmt.Errorf("no log files found for source '%s'.\nChecked: %v\n\n%s", source, checked, hint)
	}

	return paths, nil
}

// ParseLogSource parses a string into a LogSource.
func ParseLogSource(s string) LogSource {
	switch s {
	case "worker":
		return LogSourceWorker
	case "all":
		return LogSourceAll
	default:
		return LogSourceGo
	}
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

// getLogHint returns a helpful message on how to generate logs for the given source.
func getLogHint(source LogSource) string {
	switch source {
	case LogSourceGo:
		return "To generate server logs:\n  partsearchd serve"
	case LogSourceWorker:
		return "To generate ingestion worker logs:\n  partsearchd serve (the orchestrator logs to the same process under the \"worker\" component tag)"
	case LogSourceAll:
		return "To generate logs:\n  partsearchd serve"
	default:
		return ""
	}
}
