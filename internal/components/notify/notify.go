// Package notify e-mails the summary of a scraping run.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"catalog-ingest/internal/catalog/orchestrator"
	"catalog-ingest/internal/catalog/updater"
	"catalog-ingest/internal/components/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("catalog.notify")

const report_notify_send_summary = "notify.send-summary"

type SmtpConfig struct {
	Server       string   `json:"smtp_server"`
	Port         int      `json:"smtp_port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Enabled is false unless a server and at least one recipient are configured.
func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

// Sender delivers a composed mail, SmtpConfig.Send is the production sender.
type Sender func(mail *email.Email) error

func (c SmtpConfig) Send(mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", c.Server, c.Port)
	err := mail.Send(addr, smtp.PlainAuth("", c.EmailAddress, c.Password, c.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	return err
}

func Compose(config SmtpConfig, run orchestrator.RunResult) *email.Email {
	var body bytes.Buffer
	orchestrator.Summary(&body, run)

	stats := run.Stats
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Catalog Ingest <%s>", config.EmailAddress)
	mail.To = config.To
	mail.Subject = fmt.Sprintf(
		"Catalog scrape %s: %d/%d successful, %d partial, %d failed",
		stats.SessionId,
		stats.SuccessfulPrograms,
		stats.TotalPrograms,
		stats.PartialPrograms,
		stats.FailedPrograms,
	)
	mail.Text = body.Bytes()
	return mail
}

// SendSummary mails the summary of a run when e-mail is configured. It never
// fails the run, a delivery failure is only reported.
func SendSummary(ctx context.Context, config SmtpConfig, send Sender, run orchestrator.RunResult, tel telemetry.API) updater.BestEffort {
	if !config.Enabled() {
		return updater.BestEffort{}
	}
	_, span := tracer.Start(ctx, "SendSummary")
	defer span.End()

	err := send(Compose(config, run))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		tel.ReportWarning(report_notify_send_summary, err, config.Server)
		return updater.NewBestEffort(err)
	}
	return updater.BestEffort{}
}
