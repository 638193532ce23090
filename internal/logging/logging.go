package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds the run log path using OS-appropriate path separators.
func LogFilePath(logsDir, programName string, runStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", programName, runStart.Format("20060102_150405")),
	)
}
