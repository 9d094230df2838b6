// Package prompt builds the completion prompts for each book task.
// All conversation context lives in the prompt; the model keeps none.
package prompt

import "fmt"

// Summary asks for a book summary grounded in retrieved excerpts.
func Summary(title, context string) string {
	if context == "" {
		context = "[No content available]"
	}
	return fmt.Sprintf(`You are a literary analyst. Summarize the book titled '%s' using the following excerpts.
Focus on characters, plot, tone, and themes. Avoid boilerplate or meta information.

--- Begin Excerpts ---
%s
--- End Excerpts ---

Summary:
`, title, context)
}

// Continuation asks the model to carry the story on from its last
// indexed passage, in the original author's voice.
func Continuation(title, lastChunk string) string {
	return fmt.Sprintf(`You are a literary assistant continuing a novel in the voice of its original author.

Book Title: %s

Continue the story from the passage below. Write 2-3 vivid, descriptive paragraphs that follow naturally and stay in character.

Previous passage:
"""%s"""

Next part of the story:
`, title, lastChunk)
}

// Question asks the model to answer from retrieved context only.
func Question(title, context, question string) string {
	if context == "" {
		context = "[No relevant context found]"
	}
	return fmt.Sprintf(`You are a helpful literary assistant. Use the provided context from the book '%s' to answer the user's question.

Context:
%s

Question:
%s

Answer (based only on the text above, do not guess beyond it):
`, title, context, question)
}
