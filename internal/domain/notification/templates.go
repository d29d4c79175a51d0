package notification

import (
	"fmt"
	"html"
	"strings"

	"github.com/renalwatch/renalwatch/internal/domain/alert"
)

// renderSubject builds the email subject line for an alert.
func renderSubject(a *alert.Alert) string {
	return fmt.Sprintf("[%s] %s", a.Severity, a.RuleName)
}

// renderBody builds the plain-text email body. Known rule inputs render their
// literal trigger values; unknown rules fall back to the alert's summary text.
func renderBody(a *alert.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert for patient %s\n\n", a.PatientID)
	fmt.Fprintf(&b, "Rule: %s (%s)\n", a.RuleName, a.RuleID)
	fmt.Fprintf(&b, "Severity: %s\n", a.Severity)
	fmt.Fprintf(&b, "Triggered: %s\n", a.TriggeredAt.Format("2006-01-02 15:04 MST"))
	if a.EscalationLevel > 0 {
		fmt.Fprintf(&b, "Escalation level: %d (unacknowledged)\n", a.EscalationLevel)
	}
	b.WriteString("\n")

	switch in := a.Inputs.(type) {
	case alert.WeightGainInputs:
		fmt.Fprintf(&b, "Weight rose %.1f kg over the trailing %d hours (%.1f kg to %.1f kg).\n",
			in.Delta, in.WindowHours, in.Baseline, in.Latest)
	case alert.ThresholdInputs:
		fmt.Fprintf(&b, "Reading %.1f crossed the threshold of %.1f.\n",
			in.Measurement.Value, in.Threshold)
	default:
		if a.SummaryText != "" {
			fmt.Fprintf(&b, "%s\n", a.SummaryText)
		} else {
			b.WriteString("See the dashboard for trigger details.\n")
		}
	}

	b.WriteString("\nPlease review and acknowledge this alert in RenalWatch.\n")
	return b.String()
}

// renderHTMLBody wraps the plain-text body in a minimal HTML rendering so
// clients that prefer the HTML part still show the literal trigger values.
func renderHTMLBody(a *alert.Alert) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h3>%s</h3>", html.EscapeString(renderSubject(a)))
	for _, line := range strings.Split(strings.TrimSpace(renderBody(a)), "\n") {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(line))
	}
	b.WriteString("</body></html>")
	return b.String()
}
