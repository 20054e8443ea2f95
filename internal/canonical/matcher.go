package canonical

import (
	"errors"

	"lexpipe/internal/textutil"
)

// MatchKind records which matcher strategy resolved an identity.
type MatchKind string

const (
	MatchAlias      MatchKind = "alias"
	MatchFuzzy      MatchKind = "fuzzy"
	MatchNormalized MatchKind = "normalized"
)

// Result is the canonical identity derived from one raw title.
type Result struct {
	Raw             string
	NormalizedTitle string
	StableKey       string
	DisplayTitle    string
	Match           MatchKind
}

// ErrEmptyTitle reports input that cleans down to nothing.
var ErrEmptyTitle = errors.New("title is empty after normalization")

// aliasChainLimit bounds alias-of-alias resolution so a cyclic map cannot
// loop forever.
const aliasChainLimit = 8

// Canonicalizer resolves raw titles through an ordered strategy chain:
// alias override first, fuzzy catalog match second, normalized fallback
// last. All state is read-only after construction.
type Canonicalizer struct {
	aliases        *AliasMap
	catalog        []CatalogEntry
	fuzzyEnabled   bool
	fuzzyThreshold float64
	strategies     []strategy
}

type strategy func(raw, normalized string) (Result, bool)

// Option customizes a Canonicalizer.
type Option func(*Canonicalizer)

// WithAliases installs the curated alias table.
func WithAliases(aliases *AliasMap) Option {
	return func(c *Canonicalizer) {
		c.aliases = aliases
	}
}

// WithCatalog enables fuzzy matching against the reference catalog at the
// given similarity threshold.
func WithCatalog(catalog []CatalogEntry, threshold float64) Option {
	return func(c *Canonicalizer) {
		c.catalog = catalog
		c.fuzzyEnabled = len(catalog) > 0
		c.fuzzyThreshold = threshold
	}
}

// New builds a Canonicalizer with the supplied options.
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		aliases:        &AliasMap{entries: map[string]string{}},
		fuzzyThreshold: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.strategies = []strategy{c.matchAlias, c.matchFuzzy, c.matchNormalized}
	return c
}

// Canonicalize maps a raw cited-work title to its stable identity. The
// first strategy in the chain that resolves wins.
func (c *Canonicalizer) Canonicalize(raw string) (Result, error) {
	normalized := NormalizeTitle(raw)
	if normalized == "" {
		return Result{}, ErrEmptyTitle
	}
	for _, try := range c.strategies {
		if result, ok := try(raw, normalized); ok {
			return result, nil
		}
	}
	// Unreachable: matchNormalized always resolves.
	return Result{}, ErrEmptyTitle
}

// matchAlias follows the alias chain to its canonical display form and
// derives identity from that form, so every curated variant of a work
// shares one stable key.
func (c *Canonicalizer) matchAlias(raw, normalized string) (Result, bool) {
	display, ok := c.aliases.Lookup(normalized)
	if !ok {
		return Result{}, false
	}

	current := normalized
	for depth := 0; depth < aliasChainLimit; depth++ {
		next := NormalizeTitle(display)
		if next == "" || next == current {
			break
		}
		current = next
		chained, more := c.aliases.Lookup(current)
		if !more {
			break
		}
		display = chained
	}

	return Result{
		Raw:             raw,
		NormalizedTitle: current,
		StableKey:       StableKey(current),
		DisplayTitle:    display,
		Match:           MatchAlias,
	}, true
}

// matchFuzzy accepts the highest-scoring catalog entry whose token-set
// similarity clears the threshold. Ties break toward the lexically first
// entry, keeping the outcome deterministic.
func (c *Canonicalizer) matchFuzzy(raw, normalized string) (Result, bool) {
	if !c.fuzzyEnabled || len(c.catalog) == 0 {
		return Result{}, false
	}

	best := CatalogEntry{}
	bestScore := 0.0
	for _, entry := range c.catalog {
		score := textutil.JaccardSimilarity(normalized, entry.Normalized)
		if score > bestScore {
			best = entry
			bestScore = score
		}
	}
	if bestScore < c.fuzzyThreshold || best.Normalized == "" {
		return Result{}, false
	}

	return Result{
		Raw:             raw,
		NormalizedTitle: best.Normalized,
		StableKey:       StableKey(best.Normalized),
		DisplayTitle:    best.Display,
		Match:           MatchFuzzy,
	}, true
}

func (c *Canonicalizer) matchNormalized(raw, normalized string) (Result, bool) {
	return Result{
		Raw:             raw,
		NormalizedTitle: normalized,
		StableKey:       StableKey(normalized),
		DisplayTitle:    TitleCase(normalized),
		Match:           MatchNormalized,
	}, true
}
