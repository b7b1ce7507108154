package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"social-stack/internal/models"
	"social-stack/shared/config"
)

type Sender struct {
	config *config.EmailConfig
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
	}
}

// RunReport summarizes one posting run for the email digest.
type RunReport struct {
	Date    time.Time
	Metrics models.RunMetrics
	Errors  []string
}

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<body style="font-family: sans-serif;">
<h2>Social Posting Run - {{.Date.Format "Jan 2, 2006 15:04"}}</h2>
<ul>
<li>Rows processed: {{.Metrics.RowsProcessed}}</li>
<li>Rows skipped: {{.Metrics.RowsSkipped}}</li>
<li>Successful posts: {{.Metrics.SuccessfulPosts}}</li>
<li>Failed posts: {{.Metrics.FailedPosts}}</li>
</ul>
{{if .Errors}}<h3>Errors</h3>
<ul>{{range .Errors}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>`))

func (s *Sender) SendRunReport(report *RunReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	subject := fmt.Sprintf("Social Posting Report - %s (%s)",
		report.Metrics.GetSummary(), report.Date.Format("Jan 2, 2006"))

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.sendViaSMTP(subject, buf.String())
}

func (s *Sender) sendViaSMTP(subject, body string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, body))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.FromEmail, to, msg)
}
