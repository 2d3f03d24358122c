package bootstrap

import (
	"fmt"
	"io"
	"time"
)

// Item is one line of a summary section.
type Item struct {
	Status string
	Text   string
}

// Section groups items under a heading.
type Section struct {
	Icon  string
	Title string
	Items []Item
}

// Summary renders a titled tree, such as the stages of a build or the tools
// found by doctor.
type Summary struct {
	title    string
	duration time.Duration
	sections []Section
	footer   string
}

// NewSummary creates a summary with the given header.
func NewSummary(title string) *Summary {
	return &Summary{title: title}
}

// SetDuration records the elapsed time shown in the header.
func (s *Summary) SetDuration(d time.Duration) {
	s.duration = d
}

// AddSection appends a section. Empty sections are not printed.
func (s *Summary) AddSection(icon, title string, items ...Item) {
	s.sections = append(s.sections, Section{Icon: icon, Title: title, Items: items})
}

// SetFooter sets the closing line.
func (s *Summary) SetFooter(text string) {
	s.footer = text
}

// Fprint writes the summary to w.
func (s *Summary) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\n%s", s.title)
	if s.duration > 0 {
		fmt.Fprintf(w, " in %.2fs", s.duration.Seconds())
	}
	fmt.Fprint(w, "\n")

	for _, sec := range s.sections {
		if len(sec.Items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s %s (%d)\n", sec.Icon, sec.Title, len(sec.Items))
		for i, item := range sec.Items {
			fmt.Fprintf(w, "   %s %s %s\n", treePrefix(i, len(sec.Items)), statusIcon(item.Status), item.Text)
		}
	}

	if s.footer != "" {
		fmt.Fprintf(w, "\n%s\n", s.footer)
	}
	fmt.Fprint(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status string) string {
	switch status {
	case "ok", "up", "success":
		return "✅"
	case "up-to-date":
		return "⚡"
	case "skipped", "not-run":
		return "⏸️"
	case "failed", "down":
		return "❌"
	default:
		return "⚠️"
	}
}
