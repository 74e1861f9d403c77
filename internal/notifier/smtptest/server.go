// Package smtptest runs an in-process SMTP relay for tests.
package smtptest

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Message is one accepted transaction. User is the authenticated login, if any.
type Message struct {
	From string
	To   []string
	Data []byte
	User string
	TLS  bool
}

// Server accepts every message unless RejectData is set.
type Server struct {
	Host string
	Port int

	mu         sync.Mutex
	messages   []Message
	rejectData bool
	username   string
	password   string
	srv        *smtp.Server
}

type Option func(*Server)

// WithTLS advertises STARTTLS using cfg.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.srv.TLSConfig = cfg
	}
}

// WithAuth advertises AUTH PLAIN, accepts only the given credentials and
// refuses MAIL FROM until the session has logged in.
func WithAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
		s.srv.AllowInsecureAuth = true
	}
}

// NewServer listens on a random loopback port and stops when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtptest: listen: %v", err)
	}

	s := &Server{}
	s.srv = smtp.NewServer(&backend{server: s})
	s.srv.Domain = "localhost"
	for _, opt := range opts {
		opt(s)
	}

	host, port, _ := net.SplitHostPort(l.Addr().String())
	s.Host = host
	s.Port, _ = strconv.Atoi(port)

	go func() {
		_ = s.srv.Serve(l)
	}()
	t.Cleanup(func() {
		_ = s.srv.Close()
	})
	return s
}

// TLSConfigs returns a server config with a self-signed certificate valid for
// 127.0.0.1 and a client config that trusts it.
func TLSConfigs(t testing.TB) (server *tls.Config, client *tls.Config) {
	t.Helper()

	ts := httptest.NewUnstartedServer(http.NotFoundHandler())
	ts.StartTLS()
	defer ts.Close()

	pool := x509.NewCertPool()
	pool.AddCert(ts.Certificate())

	server = &tls.Config{Certificates: ts.TLS.Certificates}
	client = &tls.Config{RootCAs: pool, ServerName: "127.0.0.1"}
	return server, client
}

// ClosedPort returns a loopback port with nothing listening on it.
func ClosedPort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtptest: listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}

// SilentPort returns a loopback port that accepts connections and never
// sends a greeting.
func SilentPort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtptest: listen: %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return l.Addr().(*net.TCPAddr).Port
}

// RejectData makes the server refuse message content with a 554.
func (s *Server) RejectData(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectData = reject
}

func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

type backend struct {
	server *Server
}

func (b *backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &session{server: b.server, conn: c}, nil
}

type session struct {
	server *Server
	conn   *smtp.Conn
	user   string
	msg    Message
}

func (s *session) AuthMechanisms() []string {
	if s.server.username == "" {
		return nil
	}
	return []string{sasl.Plain}
}

func (s *session) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain || s.server.username == "" {
		return nil, smtp.ErrAuthUnknownMechanism
	}
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != s.server.username || password != s.server.password {
			return errors.New("invalid credentials")
		}
		s.user = username
		return nil
	}), nil
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	if s.server.username != "" && s.user == "" {
		return smtp.ErrAuthRequired
	}
	s.msg.From = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.msg.To = append(s.msg.To, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.server.mu.Lock()
	defer s.server.mu.Unlock()

	if s.server.rejectData {
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message rejected",
		}
	}

	s.msg.Data = data
	s.msg.User = s.user
	if s.conn != nil {
		_, s.msg.TLS = s.conn.TLSConnectionState()
	}
	s.server.messages = append(s.server.messages, s.msg)
	s.msg = Message{}
	return nil
}

func (s *session) Reset() {
	s.msg = Message{}
}

func (s *session) Logout() error {
	return nil
}
