package search

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/lcgani/agent-nexus/model"
)

// computeFingerprint hashes the searchable text of tools. It changes when
// any indexed field changes, so the keyword index is rebuilt only then.
func computeFingerprint(tools []model.ToolRecord) string {
	h := sha256.New()

	for _, t := range tools {
		for _, field := range []string{t.ToolID, t.ToolName, t.DisplayName, t.Description} {
			h.Write([]byte(field))
			h.Write([]byte{0})
		}

		// Sorted so tag order does not force a rebuild.
		tags := slices.Clone(t.Tags)
		slices.Sort(tags)
		h.Write([]byte(strings.Join(tags, "\x01")))
		h.Write([]byte{0})

		categories := slices.Clone(t.Categories)
		slices.Sort(categories)
		h.Write([]byte(strings.Join(categories, "\x01")))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
