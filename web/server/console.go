package server

import (
	"fmt"
	"strings"
	"time"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning", "error"
}

// WebLogger forwards render messages to the server log and to the browser
// console of a single render
type WebLogger struct {
	renderID    string
	consoleChan chan<- ConsoleMessage
}

// NewWebLogger creates a new web logger for a specific render
func NewWebLogger(renderID string, consoleChan chan<- ConsoleMessage) *WebLogger {
	return &WebLogger{
		renderID:    renderID,
		consoleChan: consoleChan,
	}
}

// Printf logs an info message
func (wl *WebLogger) Printf(format string, args ...interface{}) {
	wl.send("info", format, args...)
}

// Warningf logs a warning
func (wl *WebLogger) Warningf(format string, args ...interface{}) {
	wl.send("warning", format, args...)
}

// Errorf logs an error
func (wl *WebLogger) Errorf(format string, args ...interface{}) {
	wl.send("error", format, args...)
}

func (wl *WebLogger) send(level, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	// Also write to the server log
	line := strings.TrimRight(message, "\n")
	switch level {
	case "warning":
		logger.Warningf("[%s] %s", wl.renderID, line)
	case "error":
		logger.Errorf("[%s] %s", wl.renderID, line)
	default:
		logger.Infof("[%s] %s", wl.renderID, line)
	}

	// Send to web console if channel is available (non-blocking)
	if wl.consoleChan != nil {
		select {
		case wl.consoleChan <- ConsoleMessage{
			Message:   message,
			Timestamp: time.Now(),
			Level:     level,
		}:
		default:
			// Channel full, skip (don't block)
		}
	}
}
