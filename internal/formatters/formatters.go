package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"resumegenius/internal/plan"
	"resumegenius/internal/types"
)

// Output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

const (
	typeReport  = "Report"
	typeRewrite = "RewriteResult"
	typeAny     = "any"
)

// Report is a health check as seen by a user on a given plan
type Report struct {
	Analysis *types.AnalysisResult
	Plan     plan.Plan
}

// Formatter renders one data type
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry maps format and data type to a formatter
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a registry with the built-in formatters
func NewFormatterRegistry() *FormatterRegistry {
	r := &FormatterRegistry{formatters: make(map[string]map[string]Formatter)}

	r.RegisterFormatter(FormatJSON, typeAny, &JSONFormatter{})
	r.RegisterFormatter(FormatJSON, typeReport, &ReportJSONFormatter{})
	r.RegisterFormatter(FormatText, typeReport, &ReportTextFormatter{})
	r.RegisterFormatter(FormatMarkdown, typeReport, &ReportMarkdownFormatter{})
	r.RegisterFormatter(FormatText, typeRewrite, &RewriteTextFormatter{})
	r.RegisterFormatter(FormatMarkdown, typeRewrite, &RewriteMarkdownFormatter{})

	return r
}

// RegisterFormatter registers f for format and dataType
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, f Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = f
}

// Format renders data, falling back to the format's generic formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := dataTypeOf(data)
	if byType, ok := fr.formatters[format]; ok {
		if f, ok := byType[dataType]; ok {
			return f.Format(data)
		}
		if f, ok := byType[typeAny]; ok {
			return f.Format(data)
		}
	}
	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns the registered formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for f := range fr.formatters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

func dataTypeOf(data any) string {
	switch data.(type) {
	case Report, *Report:
		return typeReport
	case types.RewriteResult, *types.RewriteResult:
		return typeRewrite
	default:
		return typeAny
	}
}

func asReport(data any) (Report, error) {
	switch v := data.(type) {
	case Report:
		return v, nil
	case *Report:
		if v != nil {
			return *v, nil
		}
	}
	return Report{}, fmt.Errorf("expected Report, got %T", data)
}

func asRewrite(data any) (*types.RewriteResult, error) {
	switch v := data.(type) {
	case types.RewriteResult:
		return &v, nil
	case *types.RewriteResult:
		if v != nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("expected RewriteResult, got %T", data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (jf *JSONFormatter) SupportedType() string { return typeAny }

// ReportJSONFormatter emits the analysis with locked sections redacted
type ReportJSONFormatter struct{}

func (f *ReportJSONFormatter) Format(data any) (string, error) {
	r, err := asReport(data)
	if err != nil {
		return "", err
	}
	return (&JSONFormatter{}).Format(struct {
		Plan     plan.Plan             `json:"plan"`
		Analysis *types.AnalysisResult `json:"analysis"`
	}{r.Plan, plan.ApplyLocks(r.Plan, r.Analysis)})
}

func (f *ReportJSONFormatter) SupportedType() string { return typeReport }

var extensions = map[string]string{
	FormatText:     ".txt",
	FormatMarkdown: ".md",
	FormatJSON:     ".json",
}

// ReportFileName names a report download, e.g. Resume_Analysis_Report_2024-05-01.txt
func ReportFileName(now time.Time, format string) string {
	return "Resume_Analysis_Report_" + now.Format(time.DateOnly) + extension(format)
}

// RewriteFileName names a rewrite download, e.g. Optimized_Resume_2024-05-01.txt
func RewriteFileName(now time.Time, format string) string {
	return "Optimized_Resume_" + now.Format(time.DateOnly) + extension(format)
}

func extension(format string) string {
	if ext, ok := extensions[format]; ok {
		return ext
	}
	return ".txt"
}

// ContentType returns the HTTP content type for a format
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
