package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoTestEmail is returned when no captured email exists for a recipient.
var ErrNoTestEmail = errors.New("no captured email for recipient")

// CapturedEmail is what RedisSender stores for each message.
type CapturedEmail struct {
	Kind    string    `json:"kind"`
	To      []string  `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// RedisSender captures the latest message per recipient and template in Redis so that end-to-end
// tests can read notifications back through the service API.
type RedisSender struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSender creates a RedisSender. Captured messages expire after ttl.
func NewRedisSender(client *redis.Client, ttl time.Duration) *RedisSender {
	return &RedisSender{client: client, ttl: ttl}
}

// KindGeneric is used for messages that carry no template header.
const KindGeneric = "generic"

func testEmailKey(kind, recipient string) string {
	return fmt.Sprintf("testemail:%s:%s", strings.ToLower(recipient), kind)
}

func messageKind(rawMessage []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(rawMessage))
	if err != nil {
		return KindGeneric
	}
	if kind := msg.Header.Get(TemplateHeader); kind != "" {
		return kind
	}
	return KindGeneric
}

// Send stores the message under the key of every recipient.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	kind := messageKind(rawMessage)
	data, err := json.Marshal(CapturedEmail{
		Kind:    kind,
		To:      to,
		Subject: subject,
		Body:    string(rawMessage),
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, recipient := range to {
		pipe.Set(ctx, testEmailKey(kind, recipient), data, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store email in Redis: %w", err)
	}
	log.Printf("Captured %s email in Redis for %v (Subject: %s)", kind, to, subject)
	return nil
}

// Latest returns and removes the last message of the given kind captured for recipient.
func (s *RedisSender) Latest(ctx context.Context, kind, recipient string) (*CapturedEmail, error) {
	raw, err := s.client.GetDel(ctx, testEmailKey(kind, recipient)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoTestEmail
		}
		return nil, fmt.Errorf("failed to read captured email: %w", err)
	}
	var captured CapturedEmail
	if err := json.Unmarshal(raw, &captured); err != nil {
		return nil, fmt.Errorf("failed to decode captured email: %w", err)
	}
	return &captured, nil
}
