package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// DenialOptions configures the formatting of a compile refusal.
type DenialOptions struct {
	// Kind is the failure category shown in the header (e.g.
	// "POLICY VIOLATION").
	Kind string
	// Message is the compiler's diagnostic.
	Message string
	// Suggestions are near-miss entities from the relevant allow list.
	Suggestions []string
	// HelpCommands are follow-up commands to print as footers.
	HelpCommands []string
	// NoColor disables ANSI colors.
	NoColor bool
}

// FormatDenial renders a compile failure the way the CLI presents it:
//
//	✗ POLICY VIOLATION: table not allowed: user
//
//	  Did you mean: users?
//
//	  → See the active policy: jsonsql policy show
func FormatDenial(opts DenialOptions) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	if opts.NoColor {
		header.DisableColor()
	}

	if opts.Kind != "" {
		header.Fprintf(&b, "✗ %s: %s\n", strings.ToUpper(opts.Kind), opts.Message)
	} else {
		header.Fprintf(&b, "✗ %s\n", opts.Message)
	}

	if len(opts.Suggestions) > 0 {
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		b.WriteString("\n")
		yellow.Fprintf(&b, "  Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "  → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteDenial writes a formatted refusal to the writer.
func WriteDenial(w io.Writer, opts DenialOptions) {
	fmt.Fprint(w, FormatDenial(opts))
}

// FormatSuccess renders a success line.
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}
