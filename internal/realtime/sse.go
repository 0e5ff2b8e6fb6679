package realtime

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Time between keepalive comments
const ssePingPeriod = 30 * time.Second

// ServeSSE streams the channel's events to the response until the client disconnects.
// initial events are written straight after the connected event.
func ServeSSE(w http.ResponseWriter, r *http.Request, hubManager *HubManager, channel string, initial ...Event) {
	rc := http.NewResponseController(w)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// The stream outlives the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	// Check if SSE is supported
	if err := rc.Flush(); errors.Is(err, http.ErrNotSupported) {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := NewClient()
	hubManager.Subscribe(channel, client)
	defer func() {
		hubManager.Unsubscribe(channel, client)
		client.Close()
	}()

	// Send initial connection event
	if _, err := w.Write(formatSSEMessage(EventConnected, `{"status":"connected"}`)); err != nil {
		return
	}
	for _, ev := range initial {
		if _, err := w.Write(formatSSEMessage(ev.Name, string(ev.Data))); err != nil {
			return
		}
	}
	_ = rc.Flush()

	// Create ticker for keepalive
	ticker := time.NewTicker(ssePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-client.Events():
			if _, err := w.Write(formatSSEMessage(ev.Name, string(ev.Data))); err != nil {
				return
			}
			_ = rc.Flush()

		case <-ticker.C:
			// Send keepalive comment
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			_ = rc.Flush()

		case <-client.Done():
			return

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}

// formatSSEMessage formats an SSE message with event name and data
// Multi-line data is properly formatted with "data: " prefix on each line
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	// SSE requires each line of data to be prefixed with "data: "
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, handling various line endings
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
