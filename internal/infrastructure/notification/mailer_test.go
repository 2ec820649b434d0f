package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/fulfillment"
	"github.com/netesim/backend/internal/infrastructure/config"
)

func testSMTPConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "eSIM Store <noreply@example.com>",
	}
}

func testNotification() fulfillment.Notification {
	return fulfillment.Notification{
		Email:        "customer@example.com",
		OrderNumber:  1042,
		PackageTitle: "Turkey eSIM Package",
		Result: fulfillment.PurchaseResult{
			TransactionID: "TXN-8821",
			ESIM: fulfillment.ESIMDetails{
				QRCode:         "aVFSY29kZQ==",
				ActivationCode: "LPA:1$rsp.example.com$ABC123",
				ICCID:          "8990000000000001234",
				PackageName:    "Turkey 5GB",
				DataBytes:      5 * 1024 * 1024 * 1024,
				ValidityDays:   30,
				NetworkName:    "Turkcell",
			},
		},
	}
}

func TestNewSMTPMailer_Validation(t *testing.T) {
	t.Run("requires host", func(t *testing.T) {
		cfg := testSMTPConfig()
		cfg.Host = ""

		_, err := NewSMTPMailer(cfg, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("requires from address", func(t *testing.T) {
		cfg := testSMTPConfig()
		cfg.From = ""

		_, err := NewSMTPMailer(cfg, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestBuildMessage(t *testing.T) {
	mailer, err := NewSMTPMailer(testSMTPConfig(), zap.NewNop())
	require.NoError(t, err)

	msg, err := mailer.buildMessage(testNotification())
	require.NoError(t, err)

	body := string(msg)

	t.Run("headers", func(t *testing.T) {
		assert.Contains(t, body, "From: eSIM Store <noreply@example.com>\r\n")
		assert.Contains(t, body, "To: customer@example.com\r\n")
		assert.Contains(t, body, "Content-Type: text/html; charset=UTF-8\r\n")
		// the subject carries non-ASCII and must be MIME encoded
		assert.Contains(t, body, "Subject: =?utf-8?q?")
	})

	t.Run("esim details", func(t *testing.T) {
		assert.Contains(t, body, "data:image/png;base64,aVFSY29kZQ==")
		assert.Contains(t, body, "LPA:1$rsp.example.com$ABC123")
		assert.Contains(t, body, "8990000000000001234")
		assert.Contains(t, body, "Turkey 5GB")
		assert.Contains(t, body, "5.00 GB")
		assert.Contains(t, body, "30 gün")
		assert.Contains(t, body, "Turkcell")
		assert.Contains(t, body, "TXN-8821")
	})

	t.Run("escapes html in vendor data", func(t *testing.T) {
		n := testNotification()
		n.Result.ESIM.PackageName = "<script>alert(1)</script>"

		msg, err := mailer.buildMessage(n)
		require.NoError(t, err)
		assert.NotContains(t, string(msg), "<script>")
	})
}

func TestNopNotifier(t *testing.T) {
	notifier := NewNopNotifier(zap.NewNop())

	err := notifier.Send(context.Background(), testNotification())
	assert.NoError(t, err)
}
