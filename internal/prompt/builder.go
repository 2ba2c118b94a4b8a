// Package prompt renders one normalized case plus the taxonomy
// snapshot into the instruction sent to the model.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	log "github.com/sirupsen/logrus"

	"triage/internal/models"
	"triage/pkg/caserecord"
)

// DefaultRequiredFields is the 2-field deployment variant. The 4-field
// variant (case number / title / description / status reason) is
// selected through configuration.
var DefaultRequiredFields = []string{"Title", "Description"}

// DefaultTemplate demands a fixed-shape JSON answer. Tokens are
// replaced verbatim, so the rendering is deterministic for a given
// case and taxonomy snapshot.
const DefaultTemplate = `You are an AI assistant designed to categorize and provide resolutions for customer support cases.
Based on the provided case details, available categories, and available resolution types, categorize the case and suggest a resolution.
You must output your answer in JSON format with the following keys: "category", "resolution", "certainty", and "reasoning".

Strictly adhere to the following JSON format:
` + "```json" + `
{
    "category": "string",
    "resolution": "string",
    "certainty": "string (e.g., 'High', 'Medium', 'Low')",
    "reasoning": "string (brief explanation for categorization and resolution)"
}
` + "```" + `
The "category" and "resolution" MUST EXACTLY match one of the provided available names.
If no category or resolution fits well, you may suggest the closest one or indicate "Uncategorized" or "Unresolved".

Available Categories:
{{AVAILABLE_CATEGORIES}}

Available Resolution Types:
{{AVAILABLE_RESOLUTIONS}}

Customer Case Details:
{{CASE_DETAILS}}

Your JSON response:
`

// Builder renders prompts for one deployment variant.
type Builder struct {
	template       string
	requiredFields []string

	// maxDescriptionSentences bounds how much of a long description
	// reaches the model; zero means no truncation.
	maxDescriptionSentences int
	tokenizer               *sentences.DefaultSentenceTokenizer
}

// Option configures a Builder.
type Option func(*Builder)

// WithTemplate overrides the default template, e.g. with one loaded
// from the prompt directory.
func WithTemplate(tpl string) Option {
	return func(b *Builder) {
		if tpl != "" {
			b.template = tpl
		}
	}
}

// WithRequiredFields selects the deployment variant's field set.
func WithRequiredFields(fields []string) Option {
	return func(b *Builder) {
		if len(fields) > 0 {
			b.requiredFields = fields
		}
	}
}

// WithMaxDescriptionSentences truncates the Description field to the
// first n sentences.
func WithMaxDescriptionSentences(n int) Option {
	return func(b *Builder) {
		b.maxDescriptionSentences = n
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		template:       DefaultTemplate,
		requiredFields: DefaultRequiredFields,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxDescriptionSentences > 0 {
		b.tokenizer = sentences.NewSentenceTokenizer(nil)
	}
	return b
}

// RequiredFields exposes the active field set so the orchestrator and
// the builder always agree on the variant.
func (b *Builder) RequiredFields() []string {
	out := make([]string, len(b.requiredFields))
	copy(out, b.requiredFields)
	return out
}

// Build renders the prompt for one case against a taxonomy snapshot.
func (b *Builder) Build(nc caserecord.NormalizedCase, categories, resolutions []models.TaxonomyEntry) (string, error) {
	catJSON, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("failed to encode categories for prompt: %w", err)
	}
	resJSON, err := json.Marshal(resolutions)
	if err != nil {
		return "", fmt.Errorf("failed to encode resolutions for prompt: %w", err)
	}

	var details strings.Builder
	for _, field := range b.requiredFields {
		value := nc.Required[field]
		if field == "Description" {
			value = b.truncateDescription(value)
		}
		fmt.Fprintf(&details, "%s: %s\n", field, value)
	}

	out := b.template
	out = strings.ReplaceAll(out, "{{AVAILABLE_CATEGORIES}}", string(catJSON))
	out = strings.ReplaceAll(out, "{{AVAILABLE_RESOLUTIONS}}", string(resJSON))
	out = strings.ReplaceAll(out, "{{CASE_DETAILS}}", strings.TrimRight(details.String(), "\n"))
	return out, nil
}

func (b *Builder) truncateDescription(text string) string {
	if b.maxDescriptionSentences <= 0 || text == "" {
		return text
	}
	if b.tokenizer == nil {
		log.Warn("Sentence tokenizer unavailable, skipping description truncation")
		return text
	}
	sents := b.tokenizer.Tokenize(text)
	if len(sents) <= b.maxDescriptionSentences {
		return text
	}
	var sb strings.Builder
	for _, s := range sents[:b.maxDescriptionSentences] {
		sb.WriteString(strings.TrimSpace(s.Text))
		sb.WriteByte(' ')
	}
	return strings.TrimSpace(sb.String())
}
