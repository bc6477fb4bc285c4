package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// redactionRule replaces matches of pattern. When keep > 0 the first keep
// submatches (a field name and its separator) are preserved in front of the
// placeholder.
type redactionRule struct {
	pattern *regexp.Regexp
	keep    int
}

// Redactor masks credentials before log lines reach their destination.
type Redactor struct {
	rules []redactionRule
}

// NewRedactor creates a redactor that masks API keys, bearer tokens, AWS
// access keys and password/token/secret fields.
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []redactionRule{
			{pattern: regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`)},
			{pattern: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
			{pattern: regexp.MustCompile(`(Bearer\s+)[A-Za-z0-9._~+/=-]+`), keep: 1},
			{pattern: regexp.MustCompile(`(?i)("?(?:password|passwd|secret|api_key)"?\s*[:=]\s*"?)[^\s",}]+`), keep: 1},
			{pattern: regexp.MustCompile(`(?i)("?token"?\s*[:=]\s*"?)[A-Za-z0-9._-]{20,}`), keep: 1},
		},
	}
}

// AddPattern masks every match of pattern entirely.
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, redactionRule{pattern: re})
	return nil
}

// Redact returns s with every sensitive value masked.
func (r *Redactor) Redact(s string) string {
	for _, rule := range r.rules {
		if rule.keep == 0 {
			s = rule.pattern.ReplaceAllLiteralString(s, redacted)
			continue
		}
		s = rule.pattern.ReplaceAllStringFunc(s, func(match string) string {
			groups := rule.pattern.FindStringSubmatch(match)
			prefix := ""
			for _, g := range groups[1 : rule.keep+1] {
				prefix += g
			}
			return prefix + redacted
		})
	}
	return s
}

// Wrap returns a writer that redacts each write before passing it to w.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{out: w, redactor: r}
}

type redactingWriter struct {
	out      io.Writer
	redactor *Redactor
}

// Write reports len(p) on success; the redacted line is usually shorter.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.out, w.redactor.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
