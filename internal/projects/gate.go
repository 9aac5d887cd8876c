package projects

import "strings"

// GateCode identifies why the gate blocked an analysis.
type GateCode string

const (
	GateUploadSources  GateCode = "upload_sources"
	GateDomainRequired GateCode = "domain_required"
	GatePaperRequired  GateCode = "paper_required"
	GateCorpusRequired GateCode = "corpus_required"
)

// GateFailure is the first requirement an analysis submission does not meet.
type GateFailure struct {
	Code    GateCode `json:"code"`
	Message string   `json:"message"`
}

func (f *GateFailure) Error() string {
	return f.Message
}

const (
	msgUploadSources    = "Global Requirement: Please upload source documents to the corpus first."
	msgDomainContradict = "Requirement: Research domain is mandatory."
	msgDomainHypothesis = "Requirement: Domain area is mandatory."
	msgPaperContradict  = "Requirement: Current analysis paper is mandatory."
	msgPaperClaim       = "Requirement: One paper for citation check is mandatory."
	msgCorpusRequired   = "Requirement: Select at least one corpus selector option."
)

// Validate decides whether p may be analyzed. It returns nil when allowed,
// otherwise the first failing check in the order sources, domain, paper, corpus.
func Validate(p Project) *GateFailure {
	if len(p.Files) == 0 {
		return &GateFailure{Code: GateUploadSources, Message: msgUploadSources}
	}

	domainMissing := strings.TrimSpace(p.Domain) == ""
	paperMissing := p.UserPaper == nil

	switch p.Mode {
	case ModeContradict:
		if domainMissing {
			return &GateFailure{Code: GateDomainRequired, Message: msgDomainContradict}
		}
		if paperMissing {
			return &GateFailure{Code: GatePaperRequired, Message: msgPaperContradict}
		}
		if len(p.Corpus) == 0 {
			return &GateFailure{Code: GateCorpusRequired, Message: msgCorpusRequired}
		}
	case ModeClaim:
		if paperMissing {
			return &GateFailure{Code: GatePaperRequired, Message: msgPaperClaim}
		}
	case ModeHypothesis:
		if domainMissing {
			return &GateFailure{Code: GateDomainRequired, Message: msgDomainHypothesis}
		}
	}
	return nil
}
