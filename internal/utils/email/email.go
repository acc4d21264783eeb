package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"

	"github.com/Dan9191/erp-gateway/internal/config"
	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending operator alerts via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(ctx context.Context, e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	s.send = s.sendSMTP
	return s
}

// NotifySagaFailure emails the operator about an invoice that exists in the ERP
// but is not fully attached or linked. The SMTP exchange is abandoned once ctx is done.
func (s *Sender) NotifySagaFailure(ctx context.Context, req models.InvoiceRequest, res models.InvoiceResult) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.AlertEmail}
	e.Subject = fmt.Sprintf("Invoice %s needs attention: %s", req.InvoiceID, res.Stage)
	e.Text = []byte(sagaFailureBody(req, res))

	if err := s.send(ctx, e); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Alert sent to %s: %s", s.cfg.AlertEmail, e.Subject)
	return nil
}

// sendSMTP delivers e over a connection bound to ctx: its deadline applies to
// every read and write, and cancelling ctx closes the connection.
func (s *Sender) sendSMTP(ctx context.Context, e *email.Email) error {
	msg, err := e.Bytes()
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	addr := net.JoinHostPort(s.cfg.SMTPHost, s.cfg.SMTPPort)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return withCtxErr(ctx, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
			return withCtxErr(ctx, err)
		}
	}
	if s.cfg.SMTPUsername != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := c.Auth(auth); err != nil {
			return withCtxErr(ctx, err)
		}
	}
	if err := c.Mail(e.From); err != nil {
		return withCtxErr(ctx, err)
	}
	for _, to := range e.To {
		if err := c.Rcpt(to); err != nil {
			return withCtxErr(ctx, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return withCtxErr(ctx, err)
	}
	if _, err := w.Write(msg); err != nil {
		return withCtxErr(ctx, err)
	}
	if err := w.Close(); err != nil {
		return withCtxErr(ctx, err)
	}
	return withCtxErr(ctx, c.Quit())
}

// withCtxErr reports the context error when ctx ending is what broke the exchange.
// The connection deadline can fire just before ctx records its own expiry.
func withCtxErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func sagaFailureBody(req models.InvoiceRequest, res models.InvoiceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice %s (reference %s) stopped at stage %s.\n\n", req.InvoiceID, req.ReferenceRequestID, res.Stage)
	fmt.Fprintf(&b, "ERP document: %s\n", res.RequestID)

	switch res.Stage {
	case models.StageUpload:
		fmt.Fprintf(&b, "Uploaded %d of %d files before the failure.\n", len(res.UploadedFileURLs), len(req.FileURLs))
	case models.StagePatch:
		b.WriteString("All files were uploaded but the document was not updated with their URLs.\n")
	}
	for _, u := range res.UploadedFileURLs {
		fmt.Fprintf(&b, "  - %s\n", u)
	}

	fmt.Fprintf(&b, "\nError: %s\n", res.Error)
	b.WriteString("\nERP Gateway")
	return b.String()
}
