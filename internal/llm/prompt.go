package llm

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

const promptColumnLimit = 10

// Request describes the object or column to describe.
// An empty Column asks for the object description.
type Request struct {
	GlobalContext     string
	Object            string
	Kind              schema.ObjectKind
	ObjectDescription string
	Column            string
	ColumnType        string
	ColumnNames       []string
}

// Target returns object or object.column
func (r Request) Target() string {
	if r.Column == "" {
		return r.Object
	}
	return r.Object + "." + r.Column
}

// BuildPrompt renders the instruction sent to the model
func BuildPrompt(req Request, language string) string {
	var sb strings.Builder

	if req.GlobalContext != "" {
		fmt.Fprintf(&sb, "Database context: %s\n\n", req.GlobalContext)
	}

	kind := "object"
	if req.Kind == schema.KindTable || req.Kind == schema.KindView {
		kind = strings.ToLower(string(req.Kind))
	}

	if req.Column == "" {
		fmt.Fprintf(&sb, "Suggest a concise description in %s for a database %s named '%s'. ", language, kind, req.Object)
		if len(req.ColumnNames) > 0 {
			cols := req.ColumnNames
			suffix := ""
			if len(cols) > promptColumnLimit {
				cols = cols[:promptColumnLimit]
				suffix = "..."
			}
			fmt.Fprintf(&sb, "Its columns are: %s%s. ", strings.Join(cols, ", "), suffix)
		}
		sb.WriteString("Focus on the likely business purpose. Answer only with the suggested description.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Suggest a concise description in %s for the database column '%s'", language, req.Column)
	if req.ColumnType != "" {
		fmt.Fprintf(&sb, " of type '%s'", req.ColumnType)
	}
	fmt.Fprintf(&sb, " that belongs to the %s '%s'. ", kind, req.Object)
	if req.ObjectDescription != "" {
		fmt.Fprintf(&sb, "The %s is described as: %s. ", kind, req.ObjectDescription)
	}
	sb.WriteString("Focus on the likely meaning of the stored data. Answer only with the suggested description.")
	return sb.String()
}

// cleanResponse strips whitespace and wrapping quotes from model output
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
