package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultRequestSource labels requests that did not name their sender.
const DefaultRequestSource = "queue"

// RefreshRequest asks the dashboard to rebuild its snapshot out of schedule.
type RefreshRequest struct {
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshRequest creates a refresh request stamped with the current time
func NewRefreshRequest(source string) *RefreshRequest {
	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultRequestSource
	}
	return &RefreshRequest{
		Source:      source,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestFromJSON creates a message from JSON bytes
func RefreshRequestFromJSON(data []byte) (*RefreshRequest, error) {
	var msg RefreshRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode refresh request: %w", err)
	}
	msg.Source = strings.TrimSpace(msg.Source)
	if msg.Source == "" {
		msg.Source = DefaultRequestSource
	}
	return &msg, nil
}
