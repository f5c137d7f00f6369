package model

// Criterion is one named sub-condition of a scanner verdict. Evaluated is false
// when the series was too short to test it; such a criterion never passes.
type Criterion struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Evaluated bool   `json:"evaluated"`
}

// ScanResult is the verdict of one scanner on one symbol.
type ScanResult struct {
	Symbol   string             `json:"symbol"`
	Scanner  string             `json:"scanner"`
	Snapshot map[string]float64 `json:"snapshot"`
	Labels   map[string]string  `json:"labels,omitempty"`
	Criteria []Criterion        `json:"criteria"`
	Match    bool               `json:"match"`

	// SortKey orders matches for scanners that rank their output.
	SortKey float64 `json:"sort_key"`
}

// Criterion returns the named sub-criterion.
func (r ScanResult) Criterion(name string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

// Unevaluated lists criteria that could not be tested.
func (r ScanResult) Unevaluated() []string {
	var out []string
	for _, c := range r.Criteria {
		if !c.Evaluated {
			out = append(out, c.Name)
		}
	}
	return out
}
