// Package canonical maps free-text entity names (cited works, ministers,
// rapporteurs) to stable, deterministic identities. Title canonicalization
// runs a fixed cleanup pipeline, then resolves identity through an ordered
// matcher chain: curated alias override, optional fuzzy catalog match,
// normalized-text fallback.
package canonical
