// Package prompt composes the text sent to the model for one question.
package prompt

import (
	"log"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

const analystTemplate = `You are a data analyst. Based only on the provided Excel or CSV data context, answer the user's question clearly.

Data Context:
{{.context}}

User Question:
{{.question}}
`

var analyst = prompts.NewPromptTemplate(analystTemplate, []string{"context", "question"})

// Build places the instruction first, then the data context, then the question.
// Values are inserted verbatim.
func Build(context, question string) string {
	out, err := analyst.Format(map[string]any{
		"context":  context,
		"question": question,
	})
	if err != nil {
		log.Printf("prompt: render template: %v", err)
		return substitute(context, question)
	}
	return out
}

// substitute fills the template placeholders in one pass, so placeholder text inside the
// values is left alone.
func substitute(context, question string) string {
	return strings.NewReplacer("{{.context}}", context, "{{.question}}", question).Replace(analystTemplate)
}
