package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PromptTemplate is the fixed text wrapped around retrieved context
type PromptTemplate struct {
	Name        string
	Persona     string
	Instruction string
}

// LegalAssistantTemplate is the default answering template
var LegalAssistantTemplate = PromptTemplate{
	Name: "legal_assistant",
	Persona: "You are Nyaya.exe, an expert AI assistant specializing in Nepali laws " +
		"and legal documents. Your role is to provide accurate, helpful information " +
		"based on the legal context provided. Always cite your sources when possible " +
		"and acknowledge if something is unclear or not covered in the provided context.",
	Instruction: "Based on the above context, please answer the following question. " +
		"If the answer cannot be found in the context, say so clearly.",
}

// ProcedureTemplate asks for an ordered list of steps
var ProcedureTemplate = PromptTemplate{
	Name:    "procedure",
	Persona: LegalAssistantTemplate.Persona,
	Instruction: "Based on the above context, explain the procedure asked about below as " +
		"numbered steps, citing the source for each step. If the procedure cannot be " +
		"found in the context, say so clearly.",
}

// TemplateSelector chooses a template for a question
type TemplateSelector interface {
	Select(question string) PromptTemplate
}

// DefaultTemplateSelector always answers with LegalAssistantTemplate
type DefaultTemplateSelector struct{}

func (DefaultTemplateSelector) Select(string) PromptTemplate {
	return LegalAssistantTemplate
}

// DefaultProcedureKeywords route questions to ProcedureTemplate
var DefaultProcedureKeywords = []string{"how do i", "how to", "steps", "process", "procedure", "apply for"}

// KeywordTemplateSelector picks Match when the question contains any of
// Keywords (case-insensitive) and Fallback otherwise.
type KeywordTemplateSelector struct {
	Keywords []string
	Match    PromptTemplate
	Fallback PromptTemplate
}

// NewProcedureSelector routes procedural questions to ProcedureTemplate
func NewProcedureSelector() *KeywordTemplateSelector {
	return &KeywordTemplateSelector{
		Keywords: DefaultProcedureKeywords,
		Match:    ProcedureTemplate,
		Fallback: LegalAssistantTemplate,
	}
}

func (s *KeywordTemplateSelector) Select(question string) PromptTemplate {
	q := strings.ToLower(question)
	for _, kw := range s.Keywords {
		if strings.Contains(q, kw) {
			return s.Match
		}
	}
	return s.Fallback
}

// PromptBuilder renders a question and its retrieved fragments into one prompt
type PromptBuilder struct {
	selector TemplateSelector
}

// NewPromptBuilder creates a builder. A nil selector uses DefaultTemplateSelector.
func NewPromptBuilder(selector TemplateSelector) *PromptBuilder {
	if selector == nil {
		selector = DefaultTemplateSelector{}
	}
	return &PromptBuilder{selector: selector}
}

// Build numbers the fragments as [Source 1..n] in rank order.
func (b *PromptBuilder) Build(question string, results []domain.SearchResult) string {
	tmpl := b.selector.Select(question)

	sources := make([]string, len(results))
	for i, r := range results {
		sources[i] = fmt.Sprintf("[Source %d]\n%s", i+1, r.Metadata.Text)
	}

	var sb strings.Builder
	sb.WriteString(tmpl.Persona)
	sb.WriteString("\n\nContext from Nepali Legal Documents:\n")
	sb.WriteString(strings.Join(sources, "\n\n"))
	sb.WriteString("\n\n")
	sb.WriteString(tmpl.Instruction)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
