package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
)

// Message is a single outbound email. HTMLBody is optional; when set the
// message is sent as multipart/alternative with Body as the plain-text part.
type Message struct {
	To       string
	Subject  string
	Body     string
	HTMLBody string
}

// Sender delivers email messages. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds connection settings for an SMTP relay.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPSender sends mail through a plain SMTP relay with optional AUTH.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.Body)
	} else {
		const boundary = "=_renalwatch_alt"
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n", boundary, msg.Body)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=\"utf-8\"\r\n\r\n%s\r\n", boundary, msg.HTMLBody)
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	return nil
}

// MockSender records sent messages for tests. It can be configured to fail
// to exercise delivery error paths.
type MockSender struct {
	mu       sync.Mutex
	Sent     []Message
	FailWith error
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// SentCount returns the number of recorded messages.
func (m *MockSender) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// LastSent returns the most recently recorded message, or false if none.
func (m *MockSender) LastSent() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return Message{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
