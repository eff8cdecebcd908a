package core

// FiringPhase is the sub-cycle in which rules fire.
type FiringPhase uint8

const (
	// PhaseElaboration is the non-operator sub-cycle (state elaboration and
	// operator proposal).
	PhaseElaboration FiringPhase = iota
	// PhaseApplication is the operator-application sub-cycle.
	PhaseApplication
)

// String returns the phase name.
func (p FiringPhase) String() string {
	if p == PhaseApplication {
		return "application"
	}
	return "elaboration"
}

// Matcher is the part of the pattern matcher the core calls back into.
type Matcher interface {
	// RequestExcise asks the matcher to remove rule. The matcher is expected
	// to eventually call back into the engine to detach it.
	RequestExcise(rule *Rule)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(rule *Rule)

// RequestExcise calls f.
func (f MatcherFunc) RequestExcise(rule *Rule) { f(rule) }

// Chunker is the learning collaborator, invoked once per newly fired
// instantiation after its conditions, preferences and traces are built.
type Chunker interface {
	ChunkInstantiation(id InstID, inst *Instantiation, learning bool)
}

// ChunkerFunc adapts a function to Chunker.
type ChunkerFunc func(id InstID, inst *Instantiation, learning bool)

// ChunkInstantiation calls f.
func (f ChunkerFunc) ChunkInstantiation(id InstID, inst *Instantiation, learning bool) {
	f(id, inst, learning)
}

// PreferenceHolder is implemented by the owner of the preference arena.
// Collaborators that keep a preference handle (working memory for fact
// justifications) take and drop references through it.
type PreferenceHolder interface {
	AddPreferenceRef(id PrefID)
	ReleasePreference(id PrefID)
}
