package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestWebLogger_BasicLogging(t *testing.T) {
	// Create a channel to receive console messages
	messageChan := make(chan ConsoleMessage, 10)
	wl := NewWebLogger("test-render-123", messageChan)

	testMessage := "Test log message"
	wl.Printf("%s\n", testMessage)

	select {
	case msg := <-messageChan:
		expectedMessage := testMessage + "\n"
		if msg.Message != expectedMessage {
			t.Errorf("Expected message '%s', got '%s'", expectedMessage, msg.Message)
		}
		if msg.Level != "info" {
			t.Errorf("Expected level 'info', got '%s'", msg.Level)
		}
		if time.Since(msg.Timestamp) > time.Second {
			t.Errorf("Timestamp seems too old: %v", msg.Timestamp)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for console message")
	}
}

func TestWebLogger_Levels(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 10)
	wl := NewWebLogger("test-render-levels", messageChan)

	wl.Printf("fine")
	wl.Warningf("careful")
	wl.Errorf("broken")

	expected := []string{"info", "warning", "error"}
	for i, level := range expected {
		select {
		case msg := <-messageChan:
			if msg.Level != level {
				t.Errorf("Message %d: expected level '%s', got '%s'", i, level, msg.Level)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for message %d", i+1)
		}
	}
}

func TestWebLogger_MultipleMessages(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 10)
	wl := NewWebLogger("test-render-456", messageChan)

	messages := []string{"Frame 1", "Frame 2", "Frame 3"}
	for _, msg := range messages {
		wl.Printf("%s\n", msg)
	}

	for i, expected := range messages {
		select {
		case msg := <-messageChan:
			if msg.Message != expected+"\n" {
				t.Errorf("Message %d: expected '%s', got '%s'", i, expected+"\n", msg.Message)
			}
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("Timeout waiting for message %d", i+1)
		}
	}
}

func TestWebLogger_ChannelFull(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 1)
	wl := NewWebLogger("test-render-789", messageChan)

	// These must not block even though the channel only holds one message
	wl.Printf("Message 1\n")
	wl.Printf("Message 2\n")
	wl.Printf("Message 3\n")

	msg := <-messageChan
	if msg.Message != "Message 1\n" {
		t.Errorf("Expected the first message to be kept, got '%s'", msg.Message)
	}
	select {
	case extra := <-messageChan:
		t.Errorf("Expected later messages to be dropped, got '%s'", extra.Message)
	default:
	}
}

func TestWebLogger_NilChannel(t *testing.T) {
	wl := NewWebLogger("test-render-nil", nil)

	// This should not panic
	wl.Printf("Test message with nil channel\n")
}

func TestConsoleMessage_JSON(t *testing.T) {
	msg := ConsoleMessage{
		Message:   "Loaded cornell-box",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:     "info",
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, field := range []string{`"message":"Loaded cornell-box"`, `"level":"info"`, `"timestamp":"2024-01-02T03:04:05Z"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Expected %s in %s", field, data)
		}
	}
}
