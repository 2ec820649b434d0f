package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"

	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/fulfillment"
	"github.com/netesim/backend/internal/infrastructure/config"
)

const mailSubject = "🌍 eSIM Paketiniz Hazır!"

// implicitTLSPort is the SMTPS port where the whole connection is TLS from
// the first byte; other ports negotiate STARTTLS inside the session.
const implicitTLSPort = 465

// SMTPMailer delivers provisioned eSIM details to the customer by email.
type SMTPMailer struct {
	config config.SMTPConfig
	tmpl   *template.Template
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer from SMTP configuration.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("notification: SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("notification: SMTP from address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.New("esim").Parse(esimMailTemplate)
	if err != nil {
		return nil, fmt.Errorf("notification: parse mail template: %w", err)
	}

	return &SMTPMailer{
		config: cfg,
		tmpl:   tmpl,
		logger: logger,
	}, nil
}

// Send renders and delivers the fulfillment mail for one completed purchase.
func (m *SMTPMailer) Send(ctx context.Context, n fulfillment.Notification) error {
	msg, err := m.buildMessage(n)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))

	if err := m.deliver(ctx, addr, n.Email, msg); err != nil {
		return fmt.Errorf("notification: send mail to %s: %w", n.Email, err)
	}

	m.logger.Info("fulfillment mail sent",
		zap.String("email", n.Email),
		zap.Int("order_number", n.OrderNumber),
	)
	return nil
}

// buildMessage assembles the full RFC 5322 message including headers.
func (m *SMTPMailer) buildMessage(n fulfillment.Notification) ([]byte, error) {
	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, mailData{
		QRCode:         n.Result.ESIM.QRCode,
		ActivationCode: n.Result.ESIM.ActivationCode,
		ICCID:          n.Result.ESIM.ICCID,
		PackageName:    n.Result.ESIM.PackageName,
		DataGB:         n.Result.ESIM.DataGB(),
		ValidityDays:   n.Result.ESIM.ValidityDays,
		NetworkName:    n.Result.ESIM.NetworkName,
		TransactionID:  n.Result.TransactionID,
	}); err != nil {
		return nil, fmt.Errorf("notification: render mail template: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", n.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", mailSubject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

func (m *SMTPMailer) deliver(ctx context.Context, addr, to string, msg []byte) error {
	auth := m.auth()

	if m.config.Port == implicitTLSPort {
		return m.deliverTLS(ctx, addr, to, msg, auth)
	}

	return smtp.SendMail(addr, auth, m.config.From, []string{to}, msg)
}

// deliverTLS speaks SMTPS: TLS handshake first, then the SMTP session.
func (m *SMTPMailer) deliverTLS(ctx context.Context, addr, to string, msg []byte, auth smtp.Auth) error {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.config.Host}}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(m.config.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func (m *SMTPMailer) auth() smtp.Auth {
	if m.config.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
}

var _ fulfillment.Notifier = (*SMTPMailer)(nil)

// NopNotifier drops notifications. Used when SMTP delivery is disabled;
// fulfillment proceeds without customer mail.
type NopNotifier struct {
	logger *zap.Logger
}

// NewNopNotifier creates a notifier that logs and discards notifications.
func NewNopNotifier(logger *zap.Logger) *NopNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NopNotifier{logger: logger}
}

// Send logs the skipped notification and returns nil.
func (n *NopNotifier) Send(_ context.Context, notif fulfillment.Notification) error {
	n.logger.Info("mail delivery disabled, skipping fulfillment notification",
		zap.String("email", notif.Email),
		zap.Int("order_number", notif.OrderNumber),
	)
	return nil
}

var _ fulfillment.Notifier = (*NopNotifier)(nil)

// mailData is the template context for the fulfillment mail.
type mailData struct {
	QRCode         string
	ActivationCode string
	ICCID          string
	PackageName    string
	DataGB         string
	ValidityDays   int
	NetworkName    string
	TransactionID  string
}

// esimMailTemplate renders the customer-facing eSIM delivery mail. The QR
// code arrives from the vendor as base64 PNG and is embedded as a data URI.
const esimMailTemplate = `<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; }
    .qr-code { max-width: 300px; }
    .details { background: #f5f5f5; padding: 15px; }
    .instructions { margin-top: 20px; }
  </style>
</head>
<body>
  <h2>eSIM Paketiniz Hazır!</h2>

  <div class="qr-code">
    <img src="data:image/png;base64,{{.QRCode}}" alt="eSIM QR Code" style="width: 100%"/>
  </div>

  <div class="details">
    <h3>📱 eSIM Bilgileri</h3>
    <p><strong>Aktivasyon Kodu:</strong> {{.ActivationCode}}</p>
    <p><strong>ICCID:</strong> {{.ICCID}}</p>
  </div>

  <div class="package-info">
    <h3>📦 Paket Detayları</h3>
    <p><strong>Paket:</strong> {{.PackageName}}</p>
    <p><strong>Data:</strong> {{.DataGB}} GB</p>
    <p><strong>Süre:</strong> {{.ValidityDays}} gün</p>
    <p><strong>Operatör:</strong> {{.NetworkName}}</p>
  </div>

  <div class="instructions">
    <h3>📝 Kurulum Adımları</h3>
    <ol>
      <li>Ayarlar &gt; Hücresel'e gidin</li>
      <li>eSIM Ekle'yi seçin</li>
      <li>QR kodu tarayın veya kodu girin</li>
      <li>Aktivasyonu onaylayın</li>
    </ol>
  </div>

  <p style="color: #666;">Referans No: {{.TransactionID}}</p>
  <p style="color: #666;">Destek için: support@netesim.com</p>
</body>
</html>
`
