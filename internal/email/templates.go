package email

import (
	"fmt"
	"html/template"
	"strings"
)

var reminderTmpl = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>💰 Finance Tracker</h1>
    <h2>{{.Title}}</h2>
    <p>{{.Message}}</p>
    <p><a href="{{.AppURL}}/transactions/new">Record a transaction</a></p>
    <p style="color: #666; font-size: 12px;">You are receiving this because you set up a reminder in Finance Tracker.</p>
  </div>
</body>
</html>
`))

var summaryTmpl = template.Must(template.New("monthlySummary").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>💰 Finance Tracker</h1>
    <h2>{{.Month}} {{.Year}} Summary</h2>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><td>Income</td><td align="right">{{.Income}}</td></tr>
      <tr><td>Expenses</td><td align="right">{{.Expenses}}</td></tr>
      <tr><td><strong>Net</strong></td><td align="right"><strong>{{.Net}}</strong></td></tr>
    </table>
    {{if .TopCategories}}
    <h3>Top categories</h3>
    <ol>
      {{range .TopCategories}}<li>{{.Name}}: {{.Total}}</li>
      {{end}}
    </ol>
    {{end}}
    <p><a href="{{.AppURL}}/analytics/monthly/{{.Year}}">View full analytics</a></p>
  </div>
</body>
</html>
`))

var notificationTmpl = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>💰 Finance Tracker</h1>
    <h2>{{.Title}}</h2>
    <p>{{.Message}}</p>
    <p><a href="{{.AppURL}}">Open Finance Tracker</a></p>
  </div>
</body>
</html>
`))

// Render produces the subject and HTML body for a message kind.
func Render(kind Kind, data any) (subject, body string, err error) {
	var sb strings.Builder

	switch kind {
	case KindReminder:
		d, ok := data.(ReminderData)
		if !ok {
			return "", "", fmt.Errorf("reminder email needs ReminderData, got %T", data)
		}
		if err := reminderTmpl.Execute(&sb, d); err != nil {
			return "", "", err
		}
		return fmt.Sprintf("💰 Finance Tracker Reminder: %s", d.Title), sb.String(), nil

	case KindMonthlySummary:
		d, ok := data.(MonthlySummaryData)
		if !ok {
			return "", "", fmt.Errorf("monthly summary email needs MonthlySummaryData, got %T", data)
		}
		if err := summaryTmpl.Execute(&sb, d); err != nil {
			return "", "", err
		}
		return fmt.Sprintf("📊 Your %s %d Financial Summary", d.Month, d.Year), sb.String(), nil

	case KindNotification:
		d, ok := data.(NotificationData)
		if !ok {
			return "", "", fmt.Errorf("notification email needs NotificationData, got %T", data)
		}
		if err := notificationTmpl.Execute(&sb, d); err != nil {
			return "", "", err
		}
		return fmt.Sprintf("🔔 %s", d.Title), sb.String(), nil

	default:
		return "", "", fmt.Errorf("unknown email kind %q", kind)
	}
}
