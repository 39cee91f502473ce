// ABOUTME: Prompt construction and answer extraction shared by the chat-model providers
// ABOUTME: Text goes inside <input> tags; the translation is read back from <output> tags
package llm

import (
	"fmt"
	"strings"

	"github.com/harper/transdoc/internal/vocab"
)

const systemPrompt = `You are a professional technical translator.
Translate the text inside <input> tags from %s to %s.
Keep the original structure, line breaks and markup exactly as they are.
Do not translate code, math, URLs or anything inside <ph id="N"/> tokens; copy every token unchanged.
Use the required vocabulary whenever a listed term appears.
Reply with only the translation inside <output></output> tags.`

// BuildPrompt returns the system and user messages for a request
func BuildPrompt(req Request) (system, user string) {
	system = fmt.Sprintf(systemPrompt, req.Source.DisplayName(), req.Target.DisplayName())

	var b strings.Builder
	if len(req.Vocabulary) > 0 {
		b.WriteString("Required vocabulary (")
		b.WriteString(string(req.Source))
		b.WriteString("=")
		b.WriteString(string(req.Target))
		b.WriteString("):\n")
		b.WriteString(vocab.Lines(req.Vocabulary))
		b.WriteString("\n")
	}
	b.WriteString("<input>\n")
	b.WriteString(req.Text)
	b.WriteString("\n</input>")
	return system, b.String()
}

// ExtractOutput concatenates the contents of every <output> block. An unclosed block
// runs to the end of the answer; an answer without tags is used whole.
func ExtractOutput(answer string) string {
	const open, closing = "<output>", "</output>"
	if !strings.Contains(answer, open) {
		return strings.TrimSpace(answer)
	}

	var parts []string
	rest := answer
	for {
		start := strings.Index(rest, open)
		if start < 0 {
			break
		}
		rest = rest[start+len(open):]
		end := strings.Index(rest, closing)
		if end < 0 {
			parts = append(parts, strings.TrimPrefix(rest, "\n"))
			break
		}
		parts = append(parts, strings.TrimPrefix(rest[:end], "\n"))
		rest = rest[end+len(closing):]
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}
