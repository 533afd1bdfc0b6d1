// Package render turns portal views and report listings into terminal text.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/validation-portal/portal-client/internal/portal"
	"github.com/validation-portal/portal-client/internal/types"
)

const barWidth = 30

type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Subtle  lipgloss.Style
	Bar     lipgloss.Style
	Header  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true),
		Success: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Subtle:  r.NewStyle().Foreground(lipgloss.Color("245")),
		Bar:     r.NewStyle().Foreground(lipgloss.Color("39")),
		Header:  r.NewStyle().Bold(true).Underline(true),
	}
}

// Writes to a terminal or a plain stream. On a terminal progress redraws a
// single line, otherwise it prints one line per tenth.
type Renderer struct {
	w           io.Writer
	styles      Styles
	lastPrinted int
	interactive bool
	mu          sync.Mutex
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func New(w io.Writer) *Renderer {
	return &Renderer{
		w:           w,
		styles:      newStyles(lipgloss.NewRenderer(w)),
		interactive: isTerminal(w) && os.Getenv("NO_COLOR") == "",
		lastPrinted: -1,
	}
}

func (r *Renderer) Bar(pct int) string {
	pct = min(max(pct, 0), 100)
	filled := pct * barWidth / 100
	return fmt.Sprintf(
		"[%s%s] %3d%%",
		r.styles.Bar.Render(strings.Repeat("#", filled)),
		strings.Repeat(".", barWidth-filled),
		pct,
	)
}

// View renders everything except progress, which Observe draws
func (r *Renderer) View(v portal.View) string {
	var b strings.Builder

	switch v.Phase {
	case portal.PhaseUploading:
		b.WriteString("Uploading " + r.Bar(v.Progress))
	case portal.PhaseSucceeded:
		b.WriteString(r.styles.Success.Render(v.Message))
		if v.ShowDownload {
			fmt.Fprintf(&b, "\nReport: %s %s",
				v.DownloadFilename,
				r.styles.Subtle.Render("("+humanize.Bytes(uint64(v.DownloadSize))+")"),
			)
		}
	case portal.PhaseFailed:
		b.WriteString(r.styles.Error.Render("Error: " + v.Error))
	case portal.PhaseIdle:
		if v.Error != "" {
			b.WriteString(r.styles.Error.Render("Error: " + v.Error))
		} else if v.SubmitEnabled {
			b.WriteString("Ready to submit")
		} else {
			b.WriteString(r.styles.Subtle.Render("Select an SBOM (.xml) and a data preparation file (.xlsx)"))
		}
	}

	return b.String()
}

// Observe is a portal.Observer drawing upload progress
func (r *Renderer) Observe(s portal.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Phase != portal.PhaseUploading {
		if r.interactive && r.lastPrinted >= 0 {
			fmt.Fprintln(r.w)
		}
		r.lastPrinted = -1
		return
	}

	if r.interactive {
		fmt.Fprintf(r.w, "\rUploading %s", r.Bar(s.Progress))
		r.lastPrinted = s.Progress
		return
	}

	if step := s.Progress / 10 * 10; step > r.lastPrinted {
		fmt.Fprintf(r.w, "Uploading %d%%\n", s.Progress)
		r.lastPrinted = step
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func (r *Renderer) Reports(reports []types.ReportSummary) string {
	if len(reports) == 0 {
		return r.styles.Subtle.Render("No reports yet")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.styles.Header.Render(fmt.Sprintf("%-8s %-16s %-20s %s", "ID", "USER", "CREATED", "REPORT")))
	for _, report := range reports {
		fmt.Fprintf(&b, "%-8d %-16s %-20s %s\n",
			report.ID,
			report.Username,
			humanize.Time(report.CreatedAt),
			orDash(report.ContentURL),
		)
	}

	return strings.TrimSuffix(b.String(), "\n")
}
