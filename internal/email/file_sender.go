package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileSender appends every message to a mail log file. It is meant for local
// development and for inspecting notifications in staging.
type FileSender struct {
	mu       sync.Mutex
	filePath string
}

// NewFileSender creates a FileSender writing to dir/emails.log.
func NewFileSender(dir string) (*FileSender, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("email log directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create email log directory %q: %w", dir, err)
	}
	return &FileSender{filePath: filepath.Join(dir, "emails.log")}, nil
}

// Path returns the log file location.
func (s *FileSender) Path() string {
	return s.filePath
}

// Send appends the raw message to the log file.
func (s *FileSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open email log file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("--- %s To: %s Subject: %s ---\n%s\n--- end ---\n\n",
		time.Now().UTC().Format(time.RFC3339), strings.Join(to, ", "), subject, rawMessage)
	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write email to log file: %w", err)
	}
	return nil
}
