package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/amishk599/jobdigest/internal/model"
)

//go:embed prompts/score.md
var scorePromptRaw string

//go:embed prompts/tailor.md
var tailorPromptRaw string

//go:embed prompts/contacts.md
var contactsPromptRaw string

var funcs = template.FuncMap{"join": strings.Join}

// Prompt templates are parsed once at package init and reused on every call.
var (
	ScoreTemplate    = template.Must(template.New("score").Funcs(funcs).Parse(scorePromptRaw))
	TailorTemplate   = template.Must(template.New("tailor").Funcs(funcs).Parse(tailorPromptRaw))
	ContactsTemplate = template.Must(template.New("contacts").Funcs(funcs).Parse(contactsPromptRaw))
)

// PromptData is the value every prompt template is executed with.
type PromptData struct {
	model.CandidateProfile
	Job model.Job
}

// Render executes tmpl with the profile and job.
func Render(tmpl *template.Template, profile model.CandidateProfile, job model.Job) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, PromptData{CandidateProfile: profile, Job: job}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
