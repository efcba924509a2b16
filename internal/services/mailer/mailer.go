package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"huddle/internal/config"
	"huddle/internal/services"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// FromConfig maps the [mail] section onto Config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}
}

// Message is one outbound email.
type Message struct {
	To      []string
	Subject string
	// Markdown is the body; it is sent as-is for text/plain and rendered for
	// text/html.
	Markdown string
}

// Mailer sends messages through one SMTP relay.
type Mailer struct {
	cfg      Config
	markdown goldmark.Markdown
	now      func() time.Time
}

// New validates cfg and returns a Mailer.
func New(cfg Config) (*Mailer, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "mailer", "init", "mail.host is not set", nil)
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "mailer", "init", "invalid mail.from", err)
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &Mailer{
		cfg:      cfg,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:      time.Now,
	}, nil
}

// Send delivers msg. Invalid recipients are a validation error; relay
// failures are external tool errors.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	recipients, err := parseRecipients(msg.To)
	if err != nil {
		return err
	}
	body, err := m.Compose(msg)
	if err != nil {
		return err
	}
	from, _ := mail.ParseAddress(m.cfg.From)
	if err := m.deliver(ctx, from.Address, recipients, body); err != nil {
		return services.Wrap(services.ErrExternalTool, "mailer", "send", m.address(), err)
	}
	return nil
}

// Compose renders msg into an RFC 5322 message.
func (m *Mailer) Compose(msg Message) ([]byte, error) {
	var html bytes.Buffer
	if err := m.markdown.Convert([]byte(msg.Markdown), &html); err != nil {
		return nil, fmt.Errorf("mailer: render markdown: %w", err)
	}

	var body bytes.Buffer
	parts := multipart.NewWriter(&body)
	if err := writePart(parts, "text/plain; charset=utf-8", []byte(msg.Markdown)); err != nil {
		return nil, err
	}
	if err := writePart(parts, "text/html; charset=utf-8", html.Bytes()); err != nil {
		return nil, err
	}
	if err := parts.Close(); err != nil {
		return nil, fmt.Errorf("mailer: close multipart: %w", err)
	}

	var out bytes.Buffer
	headers := [][2]string{
		{"From", m.cfg.From},
		{"To", strings.Join(msg.To, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", m.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + parts.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&out, "%s: %s\r\n", h[0], h[1])
	}
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func writePart(parts *multipart.Writer, contentType string, content []byte) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "8bit")
	w, err := parts.CreatePart(header)
	if err != nil {
		return fmt.Errorf("mailer: create part: %w", err)
	}
	if _, err := w.Write(normalizeNewlines(content)); err != nil {
		return fmt.Errorf("mailer: write part: %w", err)
	}
	return nil
}

func (m *Mailer) deliver(ctx context.Context, from string, to []string, body []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", m.address())
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("end data: %w", err)
	}
	return client.Quit()
}

func (m *Mailer) address() string {
	return net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
}

func parseRecipients(raw []string) ([]string, error) {
	var out []string
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr, err := mail.ParseAddress(entry)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "mailer", "send", fmt.Sprintf("invalid recipient %q", entry), err)
		}
		out = append(out, addr.Address)
	}
	if len(out) == 0 {
		return nil, services.Wrap(services.ErrValidation, "mailer", "send", "at least one recipient required", nil)
	}
	return out, nil
}

func normalizeNewlines(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
}
