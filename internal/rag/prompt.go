package rag

import (
	"fmt"
	"strings"
)

const systemMessage = "You are a helpful AI assistant answering questions about " +
	"Rushikesh Randive's portfolio and experience. Use the provided " +
	"context to answer accurately."

// buildPrompt assembles the generation prompt from the retrieved context
// chunks and the user's question. Chunks are numbered so the model can
// ground its answer in specific passages.
func buildPrompt(question string, contextChunks []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "System: %s\n\nContext:\n", systemMessage)
	for i, chunk := range contextChunks {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, chunk)
	}
	fmt.Fprintf(&sb, "\nQuestion: %s", question)
	return sb.String()
}
