package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

// Dialer mengirim pesan surel yang sudah disusun.
type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// Mailer mengirim notifikasi surel melalui SMTP.
type Mailer struct {
	from   string
	dialer Dialer
}

// NewMailer membuat pengirim surel dengan STARTTLS wajib.
func NewMailer(host string, port int, username, password, from string) *Mailer {
	d := mail.NewDialer(host, port, username, password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: host}

	return &Mailer{from: from, dialer: d}
}

// NewMailerWithDialer membuat pengirim surel dengan dialer kustom.
func NewMailerWithDialer(from string, d Dialer) *Mailer {
	return &Mailer{from: from, dialer: d}
}

// Send mengirim notifikasi surel ke n.Recipient.
func (m *Mailer) Send(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.Recipient == "" {
		return fmt.Errorf("empty recipient")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", n.Recipient)
	msg.SetHeader("Subject", n.Subject)
	msg.SetBody("text/html", n.Body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
