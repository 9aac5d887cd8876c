package analysis

import (
	"fmt"
	"strings"

	"research-backend/internal/projects"
)

const notApplicable = "N/A"

func paperName(req Request) string {
	if req.UserPaper == nil {
		return notApplicable
	}
	return req.UserPaper.Name
}

func sourceNames(req Request) string {
	names := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}

func hasCorpus(req Request, sel projects.CorpusSelector) bool {
	for _, c := range req.Corpus {
		if c == sel {
			return true
		}
	}
	return false
}

// systemInstruction renders the role prompt for the request's mode.
func systemInstruction(req Request) string {
	paper := paperName(req)
	switch req.Mode {
	case projects.ModeContradict:
		uploaded, external := "", ""
		if hasCorpus(req, projects.CorpusUploaded) {
			uploaded = "General sources provided"
		}
		if hasCorpus(req, projects.CorpusExternal) {
			external = "External research knowledge"
		}
		return "You are a critical research analyst.\n" +
			"    Primary Paper to Analyze: " + paper + ".\n" +
			"    Domain: " + req.Domain + ".\n" +
			"    Context: " + req.Prompt + ".\n" +
			"    Reference Corpus: " + uploaded + " " + external + ".\n" +
			"    Identify internal contradictions within \"" + paper + "\" and external contradictions against the reference sources or established knowledge."
	case projects.ModeClaim:
		return "You are a citation and claim validator.\n" +
			"    Paper to verify: " + paper + ".\n" +
			"    Sources to check against: " + sourceNames(req) + ".\n" +
			"    Verify if claims made in \"" + paper + "\" are accurately supported by the provided sources. \n" +
			"    Check citation formatting and logical consistency."
	case projects.ModeHypothesis:
		return "You are a research visionary for " + req.Domain + ".\n" +
			"    Analyze the provided literature: " + sourceNames(req) + ".\n" +
			"    Identify specific gaps, propose hypotheses, and suggest a novel research direction."
	}
	return ""
}

// contents renders the user turn shared by all modes.
func contents(req Request) string {
	prompt := req.Prompt
	if prompt == "" {
		prompt = "None"
	}
	return fmt.Sprintf(`Analysis of research in domain "%s". Primary paper: "%s". Corpus: %s. Additional user prompt: %s.`,
		req.Domain, paperName(req), sourceNames(req), prompt)
}
