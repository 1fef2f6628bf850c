package formatters

import (
	"strings"

	"resumegenius/internal/types"
)

// RewriteTextFormatter renders a rewrite as a plain text document
type RewriteTextFormatter struct{}

func (f *RewriteTextFormatter) Format(data any) (string, error) {
	r, err := asRewrite(data)
	if err != nil {
		return "", err
	}
	if !r.IsStructured() {
		return r.Text, nil
	}
	s := r.Structured

	var b strings.Builder
	b.WriteString(strings.ToUpper(s.Header.Name) + "\n")
	if s.Header.Title != "" {
		b.WriteString(s.Header.Title + "\n")
	}
	if line := contactLine(s.Header); line != "" {
		b.WriteString(line + "\n")
	}

	if s.Summary != "" {
		b.WriteString("\nPROFESSIONAL SUMMARY\n" + s.Summary + "\n")
	}

	if len(s.Experience) > 0 {
		b.WriteString("\nEXPERIENCE\n")
		for _, e := range s.Experience {
			b.WriteString("\n" + joinNonEmpty(" - ", e.Position, e.Company) + "\n")
			if meta := joinNonEmpty(" | ", e.Location, e.DateRange); meta != "" {
				b.WriteString(meta + "\n")
			}
			for _, bullet := range e.Bullets {
				b.WriteString("  - " + bullet + "\n")
			}
		}
	}

	if len(s.Education) > 0 {
		b.WriteString("\nEDUCATION\n")
		for _, e := range s.Education {
			b.WriteString(joinNonEmpty(" - ", e.Degree, e.School) + "\n")
			if meta := joinNonEmpty(" | ", e.Location, e.DateRange); meta != "" {
				b.WriteString(meta + "\n")
			}
		}
	}

	if len(s.Skills) > 0 {
		b.WriteString("\nSKILLS\n")
		for _, g := range s.Skills {
			b.WriteString(g.Category + ": " + strings.Join(g.Items, ", ") + "\n")
		}
	}
	return b.String(), nil
}

func (f *RewriteTextFormatter) SupportedType() string { return typeRewrite }

// RewriteMarkdownFormatter renders a rewrite as markdown
type RewriteMarkdownFormatter struct{}

func (f *RewriteMarkdownFormatter) Format(data any) (string, error) {
	r, err := asRewrite(data)
	if err != nil {
		return "", err
	}
	if !r.IsStructured() {
		return r.Text, nil
	}
	s := r.Structured

	var b strings.Builder
	b.WriteString("# " + s.Header.Name + "\n\n")
	if s.Header.Title != "" {
		b.WriteString("**" + s.Header.Title + "**  \n")
	}
	if line := contactLine(s.Header); line != "" {
		b.WriteString(line + "\n")
	}

	if s.Summary != "" {
		b.WriteString("\n## Summary\n\n" + s.Summary + "\n")
	}

	if len(s.Experience) > 0 {
		b.WriteString("\n## Experience\n")
		for _, e := range s.Experience {
			b.WriteString("\n### " + joinNonEmpty(", ", e.Position, e.Company) + "\n")
			if meta := joinNonEmpty(" | ", e.Location, e.DateRange); meta != "" {
				b.WriteString("_" + meta + "_\n\n")
			}
			for _, bullet := range e.Bullets {
				b.WriteString("- " + bullet + "\n")
			}
		}
	}

	if len(s.Education) > 0 {
		b.WriteString("\n## Education\n\n")
		for _, e := range s.Education {
			b.WriteString("- **" + e.Degree + "**, " + e.School)
			if meta := joinNonEmpty(" | ", e.Location, e.DateRange); meta != "" {
				b.WriteString(" (" + meta + ")")
			}
			b.WriteString("\n")
		}
	}

	if len(s.Skills) > 0 {
		b.WriteString("\n## Skills\n\n")
		for _, g := range s.Skills {
			b.WriteString("- **" + g.Category + ":** " + strings.Join(g.Items, ", ") + "\n")
		}
	}
	return b.String(), nil
}

func (f *RewriteMarkdownFormatter) SupportedType() string { return typeRewrite }

func contactLine(h types.ResumeHeader) string {
	return joinNonEmpty(" | ", h.Email, h.Phone, h.Location, h.LinkedIn, h.Website)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
