package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

var ErrNoRecipients = errors.New("mail: no report recipients configured")

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var reportTemplate = template.Must(template.New("sync_report").Parse(`<html><body>
<h2>Provider sync complete</h2>
<p>Search: <code>{{.SearchKey}}</code></p>
<table>
<tr><td>Providers available</td><td>{{.TotalAvailable}}</td></tr>
<tr><td>Added</td><td>{{.Added}}</td></tr>
<tr><td>Updated</td><td>{{.Updated}}</td></tr>
<tr><td>Leads created</td><td>{{.LeadsCreated}}</td></tr>
</table>
{{if .FailedPages}}<p>Pages that failed on the last run: {{range $i, $s := .FailedPages}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
<p>Finished at {{.FinishedAt.Format "2006-01-02 15:04 MST"}}</p>
</body></html>`))

func NewEmailSender(host string, port int, user, password, from string, to []string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

func renderReport(data SyncReportData) (string, error) {
	var body bytes.Buffer
	if err := reportTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render sync report: %w", err)
	}
	return body.String(), nil
}

func (s *EmailSender) buildReport(out *usecase.SyncOutput, now time.Time) (*gomail.Message, error) {
	if len(s.To) == 0 {
		return nil, ErrNoRecipients
	}
	body, err := renderReport(SyncReportData{
		SearchKey:      out.SearchKey,
		Added:          out.Added,
		Updated:        out.Updated,
		LeadsCreated:   out.LeadsCreated,
		TotalAvailable: out.TotalAvailable,
		FailedPages:    out.FailedPages,
		FinishedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", fmt.Sprintf("Provider sync complete: %s", out.SearchKey))
	m.SetBody("text/html", body)
	return m, nil
}

// SendSyncReport mails the summary of a completed search.
func (s *EmailSender) SendSyncReport(ctx context.Context, out *usecase.SyncOutput) error {
	m, err := s.buildReport(out, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send report email: %w", err)
	}
	return nil
}
