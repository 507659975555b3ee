package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mikey/mailpilot/internal/core"
)

// Color palette.
var (
	colorRed    = lipgloss.Color("#ff5555")
	colorGreen  = lipgloss.Color("#50fa7b")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorBlue   = lipgloss.Color("#8be9fd")
	colorDim    = lipgloss.Color("#6272a4")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(14)

	valueStyle = lipgloss.NewStyle().Bold(true)

	bulletStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			PaddingLeft(2)

	warnStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1).
			Width(72)
)

var priorityStyles = map[core.Priority]lipgloss.Style{
	core.PriorityHigh:   warnStyle,
	core.PriorityMedium: lipgloss.NewStyle().Foreground(colorYellow),
	core.PriorityLow:    lipgloss.NewStyle().Foreground(colorGreen),
}

// printer writes the styled text form of a result
type printer struct {
	w io.Writer
}

// print writes v as indented JSON when --json is set, otherwise through render
func (a *app) print(w io.Writer, v interface{}, render func(*printer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	render(&printer{w: w})
	return nil
}

func (p *printer) title(s string) {
	fmt.Fprintln(p.w, titleStyle.Render(s))
}

func (p *printer) field(label, value string) {
	fmt.Fprintln(p.w, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value)))
}

func (p *printer) list(label string, items []string) {
	if len(items) == 0 {
		p.field(label, "none")
		return
	}
	fmt.Fprintln(p.w, labelStyle.Render(label))
	for _, item := range items {
		fmt.Fprintln(p.w, bulletStyle.Render("• "+item))
	}
}

func (p *printer) analysis(r *core.AnalysisResult) {
	p.title("Analysis")
	p.field("Category", string(r.Category))
	fmt.Fprintln(p.w, lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render("Priority"), priorityStyles[r.Priority].Render(string(r.Priority))))
	p.field("Sentiment", string(r.Sentiment))
	p.field("Urgency", fmt.Sprintf("%d/10", r.UrgencyScore))
	p.field("Language", r.DetectedLanguage)
	p.field("Confidence", fmt.Sprintf("%.2f", r.Confidence))
	p.field("Provider", r.ProviderUsed)
	if r.RequiresHumanReview {
		fmt.Fprintln(p.w, warnStyle.Render("Requires human review"))
	}
	p.list("Topics", r.KeyTopics)
	p.list("Actions", r.ActionItems)
	if r.SecurityFlags != nil {
		p.list("Security", r.SecurityFlags)
	}
	fmt.Fprintln(p.w, summaryStyle.Render(r.Summary))
}

func (p *printer) response(r *core.GeneratedResponse) {
	p.title("Suggested reply")
	fmt.Fprintln(p.w, summaryStyle.Render(r.Response))
	p.field("Provider", r.ProviderUsed)
}

func (p *printer) actions(r *core.ActionItemsResult) {
	p.title("Action items")
	p.list("Actions", r.ActionItems)
	p.list("Urgent", r.UrgentItems)
	p.field("Deadlines", yesNo(r.HasDeadlines))
	p.field("Provider", r.ProviderUsed)
}

func (p *printer) summary(s *core.ThreadSummary) {
	p.title("Thread summary")
	fmt.Fprintln(p.w, summaryStyle.Render(s.Summary))
	p.list("Key points", s.KeyPoints)
	p.field("Participants", strings.Join(s.Participants, ", "))
	p.list("Actions", s.ActionItems)
	p.field("Provider", s.ProviderUsed)
}

func (p *printer) artifact(a core.ExtractedArtifact) {
	p.title("Verification artifacts")
	p.list("Links", a.Links)
	if a.Code == "" {
		p.field("Code", "none")
	} else {
		p.field("Code", a.Code)
	}
}

func (p *printer) outcome(o *core.VerificationOutcome) {
	p.title("Verification")
	fmt.Fprintln(p.w, okStyle.Render(string(o.State)))
	p.field("Task", o.TaskID)
	p.field("Sender", o.Sender)
	p.field("Message", o.MessageSubject)
	p.field("Link", o.Link)
	if o.Code != "" {
		p.field("Code", o.Code)
	}
	p.field("Polls", fmt.Sprintf("%d", o.Polls))
	if o.CompletionText != "" {
		fmt.Fprintln(p.w, summaryStyle.Render(o.CompletionText))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
