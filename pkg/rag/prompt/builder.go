package prompt

import (
	"fmt"
	"strings"

	"pdf-qa-be/pkg/llm"
)

// DocumentQABuilder builds prompts that answer a question from retrieved document excerpts.
type DocumentQABuilder struct {
	documentName string
	excerpts     []string
	history      []llm.Message
	query        string
	maxTurns     int
}

// NewDocumentQABuilder keeps at most maxTurns question/answer pairs from history.
// history alternates user and assistant messages, oldest first.
func NewDocumentQABuilder(documentName string, excerpts []string, history []llm.Message, query string, maxTurns int) *DocumentQABuilder {
	return &DocumentQABuilder{
		documentName: documentName,
		excerpts:     excerpts,
		history:      history,
		query:        query,
		maxTurns:     maxTurns,
	}
}

func (b *DocumentQABuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeConversation(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *DocumentQABuilder) writeReferenceMaterial(prompt *strings.Builder) {
	if len(b.excerpts) == 0 {
		return
	}

	prompt.WriteString("<reference_material>\n")
	for i, excerpt := range b.excerpts {
		fmt.Fprintf(prompt, "<excerpt index=\"%d\">\n%s\n</excerpt>\n", i+1, excerpt)
	}
	prompt.WriteString("</reference_material>\n\n")
}

func (b *DocumentQABuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	if b.documentName != "" {
		fmt.Fprintf(prompt, "You are answering questions about the document %q.\n", b.documentName)
	} else {
		prompt.WriteString("You are answering questions about an uploaded document.\n")
	}
	prompt.WriteString("Use the excerpts in the reference material to answer the user's current question.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *DocumentQABuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Base your answer strictly on the reference material provided\n")
	prompt.WriteString("2. Use the previous conversation only to resolve what the question refers to\n")
	prompt.WriteString("3. If the material doesn't contain what's being asked, say so honestly\n")
	prompt.WriteString("4. Be concise\n")
	prompt.WriteString("</guidelines>\n\n")
}

// writeConversation renders the most recent turns as Q/A pairs.
func (b *DocumentQABuilder) writeConversation(prompt *strings.Builder) {
	turns := pairTurns(b.history)
	if b.maxTurns >= 0 && len(turns) > b.maxTurns {
		turns = turns[len(turns)-b.maxTurns:]
	}
	if len(turns) == 0 {
		return
	}

	prompt.WriteString("<previous_conversation>\n")
	for _, t := range turns {
		fmt.Fprintf(prompt, "Q: %s\nA: %s\n\n", t[0], t[1])
	}
	prompt.WriteString("</previous_conversation>\n\n")
}

func (b *DocumentQABuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Now answer the current question based on the reference material:")
}

// pairTurns groups a user message with the assistant reply that follows it.
func pairTurns(history []llm.Message) [][2]string {
	var turns [][2]string
	for i := 0; i < len(history); i++ {
		if history[i].Role != llm.RoleUser {
			continue
		}
		question := history[i].Content
		answer := ""
		if i+1 < len(history) && history[i+1].Role == llm.RoleAssistant {
			answer = history[i+1].Content
			i++
		}
		turns = append(turns, [2]string{question, answer})
	}
	return turns
}
