package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// FilenameFormat is the daily log file name; %s is the date.
const FilenameFormat = "gateway-%s.log"

// Global variable to track the rotating writer for proper cleanup
var activeRotatingWriter *DailyRotatingWriter

// SetupLogging configures the application logging to stdout and a daily file
// in logDir
func SetupLogging(logDir string) (*log.Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %v", err)
	}

	fileWriter, err := NewDailyRotatingWriter(logDir, FilenameFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %v", err)
	}
	activeRotatingWriter = fileWriter

	multiWriter := io.MultiWriter(os.Stdout, fileWriter)
	logger := log.New(multiWriter, "", log.LstdFlags|log.Lshortfile)

	logger.Printf("Logging initialized to %s", fileWriter.Path())
	return logger, nil
}

// SetupFallbackLogger creates a simple console logger when file logging fails
func SetupFallbackLogger() *log.Logger {
	fmt.Printf("Failed to set up file logging, using console logging only\n")
	return log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile)
}

// GetWriter returns the writer for the logger
func GetWriter(logger *log.Logger) io.Writer {
	return logger.Writer()
}

// CloseLogger properly closes the log file
func CloseLogger() error {
	if activeRotatingWriter != nil {
		return activeRotatingWriter.Close()
	}
	return nil
}
