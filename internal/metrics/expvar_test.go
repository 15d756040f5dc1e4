package metrics

import (
	"encoding/json"
	"expvar"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argjournal/internal/core"
)

var _ core.MetricsRecorder = (*ExpvarRecorder)(nil)
var _ core.MetricsRecorder = Multi(nil)

func TestExpvarRecorder_PublishesSnapshot(t *testing.T) {
	r := NewExpvarRecorder("")
	r.GenerationCommitted(4, 6)
	r.CompactionObserved(core.OutcomeSimplified, 10, 6, 3*time.Millisecond)
	r.ContractViolated("resolve_parent_pair")
	r.JournalSize(0, 0)

	snap := r.Snapshot()
	assert.Equal(t, int64(1), snap.Generations)
	assert.Equal(t, int64(6), snap.EdgesAdded)
	assert.Equal(t, int64(1), snap.Compactions[core.OutcomeSimplified])
	assert.Equal(t, int64(1), snap.Violations["resolve_parent_pair"])
	assert.InDelta(t, 3.0, snap.SimplifyMS, 1e-9)

	v := expvar.Get(r.Name())
	require.NotNil(t, v)
	var decoded ExpvarSnapshot
	require.NoError(t, json.Unmarshal([]byte(v.String()), &decoded))
	assert.Equal(t, int64(4), decoded.NodesAdded)
}

func TestTee_FansOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	ev := NewExpvarRecorder("")
	m := Tee(c.ForRun("t"), nil, ev)
	require.Len(t, m, 2)

	m.GenerationCommitted(2, 3)
	m.JournalSize(6, 3)
	m.CompactionObserved(core.OutcomeDeclined, 6, 3, time.Millisecond)
	m.ContractViolated("commit_generation")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations.WithLabelValues("t")))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.nodes.WithLabelValues("t")))
	assert.Equal(t, int64(1), ev.Snapshot().Generations)
	assert.Equal(t, 3, ev.Snapshot().JournalEdges)
	assert.Equal(t, int64(1), ev.Snapshot().Violations["commit_generation"])
}

func TestNewExpvarRecorder_ConcurrentSameName(t *testing.T) {
	const n = 16
	recs := make([]*ExpvarRecorder, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs[i] = NewExpvarRecorder("argjournal_concurrent")
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, r := range recs {
		require.NotNil(t, r)
		assert.False(t, seen[r.Name()], "duplicate expvar name %s", r.Name())
		seen[r.Name()] = true
		assert.NotNil(t, expvar.Get(r.Name()))
	}
}
