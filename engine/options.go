package engine

import (
	"io"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/logging"
	"github.com/SoarGroup/Soar-sub034/rhs"
	"github.com/SoarGroup/Soar-sub034/support"
)

// Config holds the per-agent policy switches. Every policy is resolved once
// when the agent is built.
//
// Example:
//
//	cfg := engine.DefaultConfig
//	cfg.SupportPolicy = support.CrossCheck
//	cfg.RemoveFullyOSupported = true
type Config struct {
	// SupportPolicy selects the support calculation.
	SupportPolicy support.Policy

	// AttributePreferences controls non-acceptable, non-reject preferences
	// outside a goal's choice attribute.
	AttributePreferences rhs.AttributePreferenceMode

	// RemoveFullyOSupported retires an instantiation from the match set as
	// soon as all of its preferences are committed with o-support.
	RemoveFullyOSupported bool

	// Learning is passed to the chunker with every fired instantiation.
	Learning bool

	// MaxChunks halts the agent once the chunker has been asked to learn
	// this many times. Zero means no limit.
	MaxChunks int

	// ChoiceAttribute names the goal attribute holding operator
	// preferences.
	ChoiceAttribute string
}

// DefaultConfig is structural-a support, attribute preferences rejected,
// no eager removal, learning off.
var DefaultConfig = Config{
	SupportPolicy:        support.StructuralA,
	AttributePreferences: rhs.AttributePreferencesReject,
	ChoiceAttribute:      "operator",
}

// Options configures an Agent. Every collaborator is optional.
//
// Example:
//
//	a := engine.New(symbols, func(o *engine.Options) {
//	    o.Config.SupportPolicy = support.StructuralB
//	    o.Logger = logger
//	    o.Chunker = myChunker
//	})
type Options struct {
	// Config contains the policy switches. Defaults to DefaultConfig.
	Config Config

	// AgentID correlates logs and hooks. A random UUID when empty.
	AgentID string

	// Logger defaults to the NoOp logger.
	Logger logging.Logger

	// Matcher receives excise requests for justifications.
	Matcher core.Matcher

	// Chunker is invoked once per fired instantiation.
	Chunker core.Chunker

	// Registry provides RHS functions. Defaults to the built-ins.
	Registry *rhs.Registry

	// Output receives text written by RHS functions.
	Output io.Writer

	// Hooks are registered on the agent's hook manager.
	Hooks []Hook
}
