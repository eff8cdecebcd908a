package engine_test

import (
	"context"

	"github.com/SoarGroup/Soar-sub034/engine"
	"github.com/SoarGroup/Soar-sub034/logging"
	"github.com/SoarGroup/Soar-sub034/support"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

func ExampleNew() {
	symbols := symbol.NewTable()
	agent := engine.New(symbols, func(o *engine.Options) {
		o.Config.SupportPolicy = support.StructuralB
		o.Logger = logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
	})
	defer agent.Close()

	_, _ = agent.RunPreferencePhase(context.Background())
}
