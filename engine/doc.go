// Package engine implements the recognition-memory core of a production
// system agent: the instantiation manager, the total-memory preference index
// and the assert/retract cycle that runs once per preference phase.
//
// # Core Responsibilities
//
// Instantiation Management:
//   - Builds one Instantiation per rule match reported by the matcher
//   - Freezes the match into conditions holding fact, trace and prohibit references
//   - Computes the match goal (the deepest goal among the matched identifiers)
//   - Evaluates the RHS into preferences and classifies their support
//   - Hands every fired instantiation to the chunker
//
// Total Memory:
//   - Indexes committed preferences per (id ^attr) slot and per match goal
//   - Keeps the InTM flag and list membership in step
//   - Applies operator-supported rejects after all normal assertions
//
// Lifetime:
//   - Preferences and instantiations live in generation-checked arenas
//   - Both are reference-counted and freed the moment the count reaches zero
//   - Freeing is iterative so long justification chains never recurse
//
// # Preference Phase
//
// RunPreferencePhase processes the queued matcher events in a fixed order:
//
//	Fire → Retract → Assert → Reject processing → Nil-goal sweep
//
// Halting (Agent.Halt, the halt and interrupt RHS functions, the chunk limit)
// stops further firing; matches not yet fired stay queued and run after
// Resume. A cancelled context behaves like a halt for the current phase and
// is returned as the error.
//
// # Usage
//
//	agent := engine.New(symbols, func(o *engine.Options) {
//	    o.Config.SupportPolicy = support.StructuralB
//	    o.Logger = logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
//	    o.Matcher = rete
//	})
//
//	agent.OnNewMatch(rule, token, fact)
//	report, err := agent.RunPreferencePhase(ctx)
//
// # Observability
//
// Hooks registered on Agent.Hooks receive firings, retractions, o-reject
// vetoes, diagnostics and the per-cycle report. Every preference phase is
// traced as an OpenTelemetry span named engine.PreferencePhase.
//
// # Concurrency Model
//
// An Agent is not safe for concurrent use. The matcher, the decision
// procedure and the preference phase take turns on one goroutine; run
// several agents to use several cores.
package engine
