package notifier

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	gomail "gopkg.in/mail.v2"
)

// AddressParser turns a configured address string into a mailbox.
type AddressParser interface {
	ParseAddress(address string) (*mail.Address, error)
}

// RFC5322Parser parses addresses with net/mail.
type RFC5322Parser struct{}

func (RFC5322Parser) ParseAddress(address string) (*mail.Address, error) {
	return mail.ParseAddress(address)
}

// Envelope is a single plain text message ready for a Transport.
type Envelope struct {
	MessageID string
	From      *mail.Address
	To        *mail.Address
	Subject   string
	Body      string
	Date      time.Time
}

// Bytes renders the envelope as an RFC 5322 message.
func (e *Envelope) Bytes() ([]byte, error) {
	m := gomail.NewMessage()
	m.SetHeader("Message-ID", e.MessageID)
	m.SetAddressHeader("From", e.From.Address, e.From.Name)
	m.SetAddressHeader("To", e.To.Address, e.To.Name)
	m.SetHeader("Subject", e.Subject)
	m.SetDateHeader("Date", e.Date)
	m.SetBody("text/plain", e.Body)

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to compose message: %w", err)
	}
	return buf.Bytes(), nil
}

func messageID(id string, from *mail.Address) string {
	domain := "localhost"
	if at := strings.LastIndex(from.Address, "@"); at >= 0 && at < len(from.Address)-1 {
		domain = from.Address[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", id, domain)
}
