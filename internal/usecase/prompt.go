package usecase

import (
	"strings"

	"docintel/internal/domain"
	"docintel/internal/port"
)

// SystemPrompt is sent with every question.
const SystemPrompt = `You are an assistant for question-answering tasks over scanned documents. ` +
	`Use the following pieces of retrieved context to answer the question. ` +
	`If you don't know the answer, just say that you don't know. ` +
	`Keep the answer concise.`

// BuildContext joins document contents with a blank line, in match order.
func BuildContext(matches []domain.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Document.Content
	}
	return strings.Join(parts, "\n\n")
}

// BuildMessages returns the system turn followed by one user turn carrying
// the context block and the question verbatim.
func BuildMessages(context, question string) []port.ChatMessage {
	var user strings.Builder
	user.WriteString("Context:\n")
	user.WriteString(context)
	user.WriteString("\n\nQuestion: ")
	user.WriteString(question)

	return []port.ChatMessage{
		{Role: port.RoleSystem, Content: SystemPrompt},
		{Role: port.RoleUser, Content: user.String()},
	}
}
