package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/engine"
	itu "github.com/SoarGroup/Soar-sub034/internal/testutil"
	"github.com/SoarGroup/Soar-sub034/memory"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

func TestCollector_CountsAgentActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	tbl := symbol.NewTable()
	a := engine.New(tbl, func(o *engine.Options) { o.AgentID = "a1" })
	defer a.Close()
	c.Register(a)
	a.SetFiringPhase(core.PhaseApplication)

	wm := memory.NewInMemoryStore(tbl, a)
	s1 := wm.PushGoal()
	f, err := wm.Add(s1, tbl.Constant("type"), tbl.Constant("state"), false, core.PrefID{})
	require.NoError(t, err)

	pb := itu.NewRuleBuilder(tbl, "apply*red")
	propose := pb.Make(core.Acceptable, itu.Match(0, core.FieldID), pb.Const("color"), pb.Const("red")).Build()
	vb := itu.NewRuleBuilder(tbl, "apply*veto")
	veto := vb.Make(core.Reject, itu.Match(0, core.FieldID), vb.Const("color"), vb.Const("red")).Build()
	db := itu.NewRuleBuilder(tbl, "divide")
	divide := db.Call("/", db.Int(1), db.Int(0)).Build()
	keep := itu.NewRuleBuilder(tbl, "apply*size")
	size := keep.Make(core.Acceptable, itu.Match(0, core.FieldID), keep.Const("size"), keep.Const("big")).Build()

	a.OnNewMatch(propose, nil, f)
	a.OnNewMatch(veto, nil, f)
	a.OnNewMatch(divide, nil, f)
	a.OnNewMatch(size, nil, f)
	_, err = a.RunPreferencePhase(context.Background())
	require.NoError(t, err)

	insts := a.InstantiationsOf(propose)
	require.Len(t, insts, 1)
	require.NoError(t, a.OnLostMatch(insts[0]))
	_, err = a.RunPreferencePhase(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.firings.WithLabelValues("a1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retractions.WithLabelValues("a1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.vetoes.WithLabelValues("a1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.diagnostics.WithLabelValues("a1", "DIVIDE_BY_ZERO")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cycles.WithLabelValues("a1", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.totalMemory.WithLabelValues("a1")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.liveInsts.WithLabelValues("a1")))
}

func TestCollector_HaltedCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	tbl := symbol.NewTable()
	a := engine.New(tbl, func(o *engine.Options) { o.AgentID = "a2" })
	defer a.Close()
	c.Register(a)

	wm := memory.NewInMemoryStore(tbl, a)
	f, err := wm.Add(wm.PushGoal(), tbl.Constant("type"), tbl.Constant("state"), false, core.PrefID{})
	require.NoError(t, err)
	stop := itu.NewRuleBuilder(tbl, "stop").Call("interrupt").Build()
	a.OnNewMatch(stop, nil, f)
	a.OnNewMatch(stop, nil, f)

	_, err = a.RunPreferencePhase(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.cycles.WithLabelValues("a2", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deferred.WithLabelValues("a2")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.cycleFired))
}

func TestNewCollector_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
