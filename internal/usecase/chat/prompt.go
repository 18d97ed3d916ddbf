package chat

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// FallbackAnswer is returned verbatim when the context cannot answer the question.
const FallbackAnswer = "I don't know from the given data."

const systemRules = `You are a helpful assistant that answers questions using ONLY the numbered context blocks below.
If the context does not contain the answer, reply exactly with: "` + FallbackAnswer + `"
Do not use prior knowledge. When you answer, cite the source of every fact in square brackets,
for example [report, page 3] or [lecture, 00:01:02-00:01:30].`

// BuildMessages renders the grounding prompt for query over the retrieved hits.
func BuildMessages(query string, hits []retrieval.Hit) []domain.Message {
	var b strings.Builder
	b.WriteString(systemRules)
	b.WriteString("\n\nContext:\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "\n[%d] (source: %s)\n%s\n", i+1, h.Chunk.Citation(), h.Chunk.Text())
	}

	return []domain.Message{
		{Role: domain.RoleSystem, Content: b.String()},
		{Role: domain.RoleUser, Content: query},
	}
}
