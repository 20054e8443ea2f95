// Package textutil provides small text helpers shared across stages:
// markup stripping, whitespace normalization, and token-set similarity.
package textutil
