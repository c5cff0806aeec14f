package turns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue is the transport a Publisher writes to and a Worker drains.
// MemoryQueue and SQSQueue implement it.
type Queue interface {
	Send(ctx context.Context, groupID, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// payload is the wire form of one queued user turn.
type payload struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Now       time.Time `json:"now"`
}

func encodePayload(p payload) (payload, string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return payload{}, "", fmt.Errorf("turns: failed to encode payload: %w", err)
	}
	return p, string(body), nil
}

func decodePayload(body string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return payload{}, fmt.Errorf("turns: failed to decode payload: %w", err)
	}
	if p.SessionID == "" {
		return payload{}, fmt.Errorf("turns: payload %q has no session id", p.ID)
	}
	return p, nil
}
