package admission

import (
	"context"
	"strings"
)

// DenylistTerms blocks disallowed prompts before any paid provider call.
// Matching is case-insensitive substring.
var DenylistTerms = []string{
	"nsfw",
	"nude",
	"explicit",
	"porn",
	"sex",
	"adult",
	"xxx",
	"violence",
	"gore",
	"blood",
	"death",
	"kill",
	"murder",
	"terrorist",
	"hate",
	"racist",
	"discrimination",
	"offensive",
}

const moderationMessage = "Your prompt contains content that violates our community guidelines."

// ModerationGuard rejects prompts matching the denylist.
type ModerationGuard struct {
	terms []string
}

func NewModerationGuard(terms []string) *ModerationGuard {
	if terms == nil {
		terms = DenylistTerms
	}
	return &ModerationGuard{terms: terms}
}

func (g *ModerationGuard) Check(_ context.Context, req Request) (Decision, error) {
	lower := strings.ToLower(req.Prompt)
	for _, term := range g.terms {
		if strings.Contains(lower, term) {
			return Deny(ReasonModerated, moderationMessage), nil
		}
	}
	return Allow(), nil
}
