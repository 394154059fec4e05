package digest

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/amishk599/jobdigest/internal/model"
)

//go:embed templates/digest.html
var htmlTemplateRaw string

var htmlTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"date": func(t *time.Time) string { return t.Format("Jan 2, 15:04 MST") },
}).Parse(htmlTemplateRaw))

type htmlData struct {
	model.Digest
	Subject string
	Date    string
}

// HTML renders the email body. Every job field is escaped by the template,
// so provider and LLM text can never inject markup.
func HTML(d model.Digest) (string, error) {
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, htmlData{
		Digest:  d,
		Subject: Subject(d),
		Date:    d.GeneratedAt.Format("Monday, January 02 2006"),
	})
	if err != nil {
		return "", fmt.Errorf("render digest html: %w", err)
	}
	return buf.String(), nil
}

// Text renders the plain-text alternative of the email.
func Text(d model.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Job Digest: %s\n", d.GeneratedAt.Format("Monday, January 02 2006"))
	fmt.Fprintf(&b, "Top %d jobs posted recently.\n", len(d.Jobs))

	for i, j := range d.Jobs {
		b.WriteString("\n" + strings.Repeat("=", 60) + "\n")
		fmt.Fprintf(&b, "#%d %s (match %d/100)\n", i+1, j.Title, j.Score())
		b.WriteString(j.Company)
		if j.Location != "" {
			b.WriteString(" | " + j.Location)
		}
		b.WriteString("\n")
		if j.Match != nil && j.Match.Reason != "" {
			b.WriteString(j.Match.Reason + "\n")
		}
		if j.URL != "" {
			b.WriteString("Apply: " + j.URL + "\n")
		}

		e := j.Enrichment
		if e == nil {
			continue
		}
		b.WriteString("\nWho to contact on LinkedIn:\n")
		if len(e.Contacts) == 0 {
			b.WriteString("  (no suggestions)\n")
		}
		for _, c := range e.Contacts {
			fmt.Fprintf(&b, "  - %s: %s\n    Search: %s\n    Message: %q\n", c.Role, c.Why, c.SearchTip, c.Message)
		}
		b.WriteString("\nTailored CV:\n")
		b.WriteString(e.TailoredResume)
		b.WriteString("\n")
	}
	return b.String()
}
