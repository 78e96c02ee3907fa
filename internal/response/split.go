package response

import (
	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

// SplitOptions carries the metadata attached to every produced variant.
type SplitOptions struct {
	// ID is used for the first variant. A fresh id is minted when empty.
	ID             string
	OriginalInput  string
	OriginalPrompt string
}

// Split turns cleaned output into variants. Runs currently produce exactly
// one variant; the slice return keeps callers ready for more.
func Split(cleaned string, opts SplitOptions) []core.FormattingVariant {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	return []core.FormattingVariant{{
		ID:             id,
		Content:        cleaned,
		Index:          0,
		OriginalInput:  opts.OriginalInput,
		OriginalPrompt: opts.OriginalPrompt,
	}}
}
