package analysis

import (
	"research-backend/internal/llm"
	"research-backend/internal/projects"
)

func stringList(description string) *llm.Schema {
	return &llm.Schema{
		Type:        llm.TypeArray,
		Description: description,
		Items:       &llm.Schema{Type: llm.TypeString},
	}
}

var contradictionSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"uploaded": stringList("Contradictions found within the user's paper itself."),
		"external": stringList("Contradictions between the user's paper and external sources/corpus."),
	},
	Order:    []string{"uploaded", "external"},
	Required: []string{"uploaded", "external"},
}

var claimSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"status": {
			Type:        llm.TypeString,
			Description: "'correct' or 'incorrect'",
			Enum:        []string{string(projects.ClaimCorrect), string(projects.ClaimIncorrect)},
		},
		"issues":  stringList(""),
		"details": {Type: llm.TypeString},
	},
	Order:    []string{"status", "issues", "details"},
	Required: []string{"status", "issues", "details"},
}

var hypothesisSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"gaps":       stringList(""),
		"hypotheses": stringList(""),
		"novelIdea":  {Type: llm.TypeString},
	},
	Order:    []string{"gaps", "hypotheses", "novelIdea"},
	Required: []string{"gaps", "hypotheses", "novelIdea"},
}

// SchemaFor returns the response schema for mode, or nil for an unknown mode.
func SchemaFor(mode projects.Mode) *llm.Schema {
	switch mode {
	case projects.ModeContradict:
		return contradictionSchema
	case projects.ModeClaim:
		return claimSchema
	case projects.ModeHypothesis:
		return hypothesisSchema
	}
	return nil
}
