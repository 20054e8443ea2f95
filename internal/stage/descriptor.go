package stage

import (
	"fmt"
	"strings"

	"lexpipe/internal/docstore"
)

// Stage names in pipeline order.
const (
	Fetch     = "fetch"
	Sanitize  = "sanitize"
	Sections  = "sections"
	Structure = "structure"
	Normalize = "normalize"
)

// Descriptor binds a stage name to its position in the document state
// machine: the status it consumes, the in-flight status a claim moves the
// document to, and the status a successful attempt produces.
type Descriptor struct {
	Name       string
	Input      docstore.Status
	Processing docstore.Status
	Done       docstore.Status
}

// ClaimSpec derives the claim parameters for this stage.
func (d Descriptor) ClaimSpec() docstore.ClaimSpec {
	return docstore.ClaimSpec{
		Stage:      d.Name,
		Inputs:     []docstore.Status{d.Input},
		Processing: d.Processing,
	}
}

var ordered = []Descriptor{
	{Name: Fetch, Input: docstore.StatusPending, Processing: docstore.StatusFetching, Done: docstore.StatusFetched},
	{Name: Sanitize, Input: docstore.StatusFetched, Processing: docstore.StatusSanitizing, Done: docstore.StatusSanitized},
	{Name: Sections, Input: docstore.StatusSanitized, Processing: docstore.StatusSectioning, Done: docstore.StatusSectioned},
	{Name: Structure, Input: docstore.StatusSectioned, Processing: docstore.StatusStructuring, Done: docstore.StatusStructured},
	{Name: Normalize, Input: docstore.StatusStructured, Processing: docstore.StatusNormalizing, Done: docstore.StatusCompleted},
}

var byName = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(ordered))
	for _, descriptor := range ordered {
		m[descriptor.Name] = descriptor
	}
	return m
}()

// Ordered returns the stage descriptors in pipeline order.
func Ordered() []Descriptor {
	cp := make([]Descriptor, len(ordered))
	copy(cp, ordered)
	return cp
}

// Lookup resolves a stage descriptor by name.
func Lookup(name string) (Descriptor, bool) {
	descriptor, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return descriptor, ok
}

// RetryTargets maps each stage name to its input status, used when moving
// failed documents back into circulation.
func RetryTargets() map[string]docstore.Status {
	targets := make(map[string]docstore.Status, len(ordered))
	for _, descriptor := range ordered {
		targets[descriptor.Name] = descriptor.Input
	}
	return targets
}

// ParseRange resolves a stage range expression into an ordered descriptor
// slice. Accepted forms: "" (all stages), a single stage name ("sanitize"),
// or an inclusive range "fetch..sections". Either endpoint may be omitted:
// "..sections" runs from the first stage, "structure.." runs to the last.
func ParseRange(expr string) ([]Descriptor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Ordered(), nil
	}

	if !strings.Contains(expr, "..") {
		descriptor, ok := Lookup(expr)
		if !ok {
			return nil, fmt.Errorf("unknown stage %q", expr)
		}
		return []Descriptor{descriptor}, nil
	}

	parts := strings.SplitN(expr, "..", 2)
	startIdx, endIdx := 0, len(ordered)-1
	if from := strings.TrimSpace(parts[0]); from != "" {
		idx, ok := indexOf(from)
		if !ok {
			return nil, fmt.Errorf("unknown stage %q", from)
		}
		startIdx = idx
	}
	if to := strings.TrimSpace(parts[1]); to != "" {
		idx, ok := indexOf(to)
		if !ok {
			return nil, fmt.Errorf("unknown stage %q", to)
		}
		endIdx = idx
	}
	if startIdx > endIdx {
		return nil, fmt.Errorf("stage range %q runs backwards", expr)
	}
	return Ordered()[startIdx : endIdx+1], nil
}

func indexOf(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, descriptor := range ordered {
		if descriptor.Name == name {
			return i, true
		}
	}
	return 0, false
}
