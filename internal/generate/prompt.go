package generate

import (
	"strings"

	"github.com/maruel/uaprod/internal/payload"
)

// SystemPrompt is the fixed policy sent with every file request.
const SystemPrompt = `You are UA-Prod, a production delivery agent. Deliver PRODUCTION-GRADE output.
- Follow the requested outputs list exactly (paths and types).
- Write clean, lint-free code; use TypeScript when asked.
- No exotic libraries by default.
- Deliver complete files, never patches.
- README: end with a short technical note followed by the assumptions and gaps.`

// UserPrompt builds the per-file instruction.
func UserPrompt(brief string, out payload.Output) string {
	var b strings.Builder
	b.WriteString("BRIEF:\n")
	b.WriteString(brief)
	b.WriteString("\n\nTARGET FILE: ")
	b.WriteString(out.Path)
	b.WriteString("\nTYPE: ")
	b.WriteString(out.Type)
	b.WriteString("\nReturn ONLY the content of the final file, without ``` fences.")
	return b.String()
}
