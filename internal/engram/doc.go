// Package engram provides the relevance-and-allocation engine for engrams.
//
// An engram is a short, typed statement of learned behavior or fact. Engrams
// live either in the personal store or inside an installed pack, and the
// engine decides which of them to inject into an agent's context for a given
// task description.
//
// # Scoring
//
// Each eligible engram is scored against the prompt by counting term hits
// (pack match terms, tags, domain segments, statement words). Engrams with no
// hits score zero regardless of strength. The hit count is weighted by the
// engram's retrieval strength, which decays exponentially for personal
// engrams:
//
//	strength = max(base * e^(-0.05 * days), 0.05)
//
// and then adjusted by explicit feedback (capped at +30% / -50%) and a 10%
// boost for consolidated engrams.
//
// # Allocation
//
// Ranked candidates fill a token budget at a fixed 40 tokens per engram. No
// more than 5 engrams may come from one pack and no more than 10 from one
// top-level domain. The selection is split into directives (first two thirds)
// and consider (the rest).
//
// # Lifecycle
//
//	learn -> candidate -> promote -> active -> forget -> retired
//
// With auto-promotion enabled, learn creates active engrams directly. Retired
// is terminal. Decay health states (fading, dormant, retirement_candidate) are
// advisory and never written back to the stored status.
//
// # Storage
//
// The Service reads and writes through the Repository and PackSource
// interfaces. Every operation loads fresh state; nothing is cached between
// requests.
package engram
