package registration

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers activation emails over plain SMTP. Connection
// lifetime is bounded by the dial timeout of the underlying transport; the
// dispatcher never retries a failed hand-off.
type SMTPSender struct {
	Addr string
	Auth smtp.Auth
}

// NewSMTPSender creates a sender for the given host:port. Auth may be nil
// for unauthenticated relays.
func NewSMTPSender(addr string, auth smtp.Auth) *SMTPSender {
	return &SMTPSender{Addr: addr, Auth: auth}
}

func (s *SMTPSender) Send(ctx context.Context, msg Email) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	return smtp.SendMail(s.Addr, s.Auth, msg.From, []string{msg.To}, []byte(b.String()))
}
