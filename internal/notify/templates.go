package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/pipeline"
)

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"join":  strings.Join,
	"rfc3339": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}

var (
	emailSubjectTmpl = template.Must(template.New("email_subject").Funcs(funcs).Parse(
		`{{if .Decision.ShouldEscalate}}[{{upper (printf "%s" .Decision.Level)}}] {{end}}Trending issue: {{.Signal.Category}} ({{.Signal.Count}} affected)`))

	emailBodyTmpl = template.Must(template.New("email_body").Funcs(funcs).Parse(`A trending customer issue was detected.

Category: {{.Signal.Category}}{{if .Signal.SubArea}}
Product area: {{.Signal.SubArea}}{{end}}
Affected customers: {{.Signal.Count}}
Max severity: {{.Signal.MaxSeverity}}
Generated at: {{rfc3339 .Resolution.GeneratedAt}}

Summary
{{.Summary}}

Resolution steps
{{.Resolution.Steps}}

Verification
{{.Resolution.Verification}}
{{if .Decision.ShouldEscalate}}
Escalated to {{.Decision.Team}} at {{.Decision.Level}} priority (response within {{.Decision.SLA}}).
Reasons: {{join .Decision.Reasons "; "}}
{{end}}
Record: {{.RecordID}}
`))

	ticketTmpl = template.Must(template.New("ticket").Funcs(funcs).Parse(`Known trending issue ({{.Signal.Category}}{{if .Signal.SubArea}}/{{.Signal.SubArea}}{{end}}), {{.Signal.Count}} customers affected.

Root cause: {{.Resolution.RootCause}}

Steps:
{{.Resolution.Steps}}

Verification:
{{.Resolution.Verification}}
{{if .Resolution.ArticlesUsed}}
Knowledge base: {{join .Resolution.ArticlesUsed ", "}}
{{end}}`))
)

func render(t *template.Template, n pipeline.Notification) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, n); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func EmailSubject(n pipeline.Notification) (string, error) { return render(emailSubjectTmpl, n) }

func EmailBody(n pipeline.Notification) (string, error) { return render(emailBodyTmpl, n) }

// TicketComment is the comment posted on customer tickets that match the trend.
func TicketComment(n pipeline.Notification) (string, error) { return render(ticketTmpl, n) }
