// Package core provides the foundational domain types of the recognition
// core and the interfaces of its external collaborators. It defines:
//
//   - Facts and tokens (what the pattern matcher hands over on a new match)
//   - Rules with their LHS condition specs and RHS actions
//   - Preferences (candidate or committed assertions) and their types
//   - Instantiations (one firing of one rule) and instantiated conditions
//   - Typed arena handles (PrefID, InstID) used for every back-reference
//   - Collaborator contracts: Matcher, Chunker, PreferenceHolder
//
// Ownership is explicit. Reference counts on facts, rules, preferences and
// instantiations are mutated only through AddRef/Release style methods, and
// a release below zero panics instead of silently corrupting state. The
// package keeps orchestration (the assert/retract cycle, total memory) out of
// scope; see package engine.
package core
