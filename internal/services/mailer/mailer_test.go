package mailer

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"huddle/internal/services"
)

// fakeSMTP accepts one session and records the envelope and data.
type fakeSMTP struct {
	listener net.Listener
	mu       sync.Mutex
	from     string
	rcpts    []string
	data     string
	done     chan struct{}
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &fakeSMTP{listener: ln, done: make(chan struct{})}
	t.Cleanup(func() { _ = ln.Close() })
	go srv.serve()
	return srv
}

func (s *fakeSMTP) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	defer close(s.done)
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	write := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }
	write("220 fake ESMTP")
	inData := false
	var data strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if inData {
			if line == "." {
				inData = false
				s.mu.Lock()
				s.data = data.String()
				s.mu.Unlock()
				write("250 queued")
				continue
			}
			data.WriteString(line + "\n")
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			write("250-fake")
			write("250 8BITMIME")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.mu.Lock()
			s.from = strings.Fields(line[len("MAIL FROM:"):])[0]
			s.mu.Unlock()
			write("250 ok")
		case strings.HasPrefix(upper, "RCPT TO:"):
			s.mu.Lock()
			s.rcpts = append(s.rcpts, line[len("RCPT TO:"):])
			s.mu.Unlock()
			write("250 ok")
		case upper == "DATA":
			inData = true
			write("354 go ahead")
		case upper == "QUIT":
			write("221 bye")
			return
		default:
			write("250 ok")
		}
	}
}

func TestSendDeliversMultipartMessage(t *testing.T) {
	srv := startFakeSMTP(t)
	m, err := New(Config{Host: "127.0.0.1", Port: srv.port(), From: "Huddle <huddle@example.com>"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = m.Send(ctx, Message{
		To:       []string{"Team <team@example.com>", " "},
		Subject:  "Triage: summarizer",
		Markdown: "**Summary**\n\nTeam concluded the meeting.",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-srv.done

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.from != "<huddle@example.com>" {
		t.Fatalf("unexpected envelope sender %q", srv.from)
	}
	if len(srv.rcpts) != 1 || srv.rcpts[0] != "<team@example.com>" {
		t.Fatalf("unexpected recipients %q", srv.rcpts)
	}
	for _, want := range []string{
		"Subject: Triage: summarizer",
		"multipart/alternative",
		"text/plain; charset=utf-8",
		"<strong>Summary</strong>",
		"Team concluded the meeting.",
	} {
		if !strings.Contains(srv.data, want) {
			t.Fatalf("message missing %q:\n%s", want, srv.data)
		}
	}
}

func TestSendValidatesRecipients(t *testing.T) {
	m, err := New(Config{Host: "127.0.0.1", Port: 1, From: "huddle@example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, to := range [][]string{nil, {"not an address"}} {
		err := m.Send(context.Background(), Message{To: to, Markdown: "x"})
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("to=%q: expected validation error, got %v", to, err)
		}
	}
}

func TestSendReportsRelayFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	m, err := New(Config{Host: "127.0.0.1", Port: port, From: "huddle@example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = m.Send(context.Background(), Message{To: []string{"team@example.com"}, Markdown: "x"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "127.0.0.1:"+strconv.Itoa(port)) {
		t.Fatalf("expected relay address in error, got %v", err)
	}
}

func TestNewRequiresHostAndSender(t *testing.T) {
	if _, err := New(Config{From: "a@example.com"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := New(Config{Host: "smtp.example.com", From: "nope"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestComposeEncodesNonASCIISubject(t *testing.T) {
	m, err := New(Config{Host: "smtp.example.com", From: "huddle@example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := m.Compose(Message{To: []string{"a@example.com"}, Subject: "Résumé", Markdown: "line one\nline two"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(string(out), "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject:\n%s", out)
	}
	if !strings.Contains(string(out), "line one\r\nline two") {
		t.Fatalf("expected CRLF body lines:\n%s", out)
	}
}
