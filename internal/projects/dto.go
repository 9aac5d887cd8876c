package projects

type patchRequest struct {
	Name   *string   `json:"name"`
	Domain *string   `json:"domain"`
	Prompt *string   `json:"prompt"`
	Mode   *string   `json:"mode"`
	Corpus *[]string `json:"corpus"`
}

func (r patchRequest) toPatch() Patch {
	patch := Patch{Name: r.Name, Domain: r.Domain, Prompt: r.Prompt}
	if r.Mode != nil {
		m := Mode(*r.Mode)
		patch.Mode = &m
	}
	if r.Corpus != nil {
		corpus := make([]CorpusSelector, 0, len(*r.Corpus))
		for _, c := range *r.Corpus {
			corpus = append(corpus, CorpusSelector(c))
		}
		patch.Corpus = &corpus
	}
	return patch
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type bulkBookmarkRequest struct {
	IDs        []string `json:"ids"`
	Bookmarked *bool    `json:"bookmarked"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type gateResponse struct {
	Allowed bool     `json:"allowed"`
	Code    GateCode `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
}

// toResponse hides storage keys from clients.
func toResponse(p Project) Project {
	files := make([]ProjectFile, len(p.Files))
	for i, f := range p.Files {
		files[i] = publicFile(f)
	}
	p.Files = files
	if p.UserPaper != nil {
		paper := publicFile(*p.UserPaper)
		p.UserPaper = &paper
	}
	return p
}

func toListResponse(list []Project) []Project {
	out := make([]Project, 0, len(list))
	for _, p := range list {
		out = append(out, toResponse(p))
	}
	return out
}

func publicFile(f ProjectFile) ProjectFile {
	f.StorageKey = ""
	f.ExtractedTextKey = ""
	return f
}
