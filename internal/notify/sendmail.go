package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"backupmgr/internal/domain"
)

// SendmailNotifier delivers run digests as local mail through a
// sendmail-compatible binary. The recipient list is read by sendmail
// itself from the message headers (-t).
type SendmailNotifier struct {
	path   string
	from   string
	to     string
	logger *slog.Logger

	// runCommand is swapped out in tests.
	runCommand func(ctx context.Context, path string, message []byte) error
}

// SendmailOption configures a SendmailNotifier.
type SendmailOption func(*SendmailNotifier)

// WithSendmailLogger sets the logger.
func WithSendmailLogger(logger *slog.Logger) SendmailOption {
	return func(s *SendmailNotifier) {
		s.logger = logger
	}
}

// NewSendmailNotifier creates a notifier that mails to the given
// address from the given sender.
func NewSendmailNotifier(path, from, to string, opts ...SendmailOption) *SendmailNotifier {
	s := &SendmailNotifier{
		path:   path,
		from:   from,
		to:     to,
		logger: slog.Default(),
	}
	s.runCommand = s.pipeToSendmail

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Notify composes the message and pipes it to sendmail.
func (s *SendmailNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	message := s.buildMessage(notification)

	s.logger.Debug("sending notification via sendmail",
		"path", s.path,
		"to", s.to,
		"title", notification.Title,
	)

	if err := s.runCommand(ctx, s.path, message); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.logger.Debug("notification mail sent")
	return nil
}

// Validate checks that the sendmail binary exists.
func (s *SendmailNotifier) Validate(_ context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("sendmail not found at %s: %w", s.path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("sendmail path %s is a directory", s.path)
	}
	return nil
}

// buildMessage renders the RFC 5322 message handed to sendmail. Header
// values have line breaks stripped so a notification title cannot
// inject headers.
func (s *SendmailNotifier) buildMessage(notification *domain.Notification) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "To: %s\r\n", headerValue(s.to))
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(s.from))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerValue(notification.Title))
	b.WriteString("\r\n")
	b.WriteString(notification.Body)
	if !strings.HasSuffix(notification.Body, "\n") {
		b.WriteString("\n")
	}

	return b.Bytes()
}

func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func (s *SendmailNotifier) pipeToSendmail(ctx context.Context, path string, message []byte) error {
	cmd := exec.CommandContext(ctx, path, "-t")
	cmd.Stdin = bytes.NewReader(message)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(output)))
		}
		return err
	}
	return nil
}

// Ensure SendmailNotifier implements domain.Notifier.
var _ domain.Notifier = (*SendmailNotifier)(nil)
