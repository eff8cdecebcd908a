// Package memory contains the working-memory store the recognition core reads
// facts from. Facts are ref-counted core.Fact values; the store holds one
// reference for as long as a fact is in working memory, and conditions of
// live instantiations hold their own. A fact justified by a preference keeps
// that preference referenced (through core.PreferenceHolder) until the last
// reference to the fact is gone.
//
// The matcher and decision procedure that drive it live outside this module.
package memory
