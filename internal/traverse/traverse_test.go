package traverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krump3t/astra-graphrag/internal/wellgraph"
)

func fixture(t *testing.T) *Traverser {
	t.Helper()
	nodes := `[
		{"id":"well-15_9-13","type":"document","attrs":{"well_name":"Sleipner East Appr"}},
		{"id":"curve-gr","type":"curve","attrs":{"mnemonic":"GR"}},
		{"id":"curve-rhob","type":"curve","attrs":{"mnemonic":"RHOB"}},
		{"id":"site-a","type":"site","attrs":{}}
	]`
	edges := `[
		{"source":"curve-gr","target":"well-15_9-13","relation":"describes"},
		{"source":"curve-rhob","target":"well-15_9-13","relation":"describes","weight":0.9},
		{"source":"well-15_9-13","target":"site-a","relation":"reports_on"}
	]`
	snap, err := wellgraph.LoadFromBytes([]byte(nodes), []byte(edges))
	require.NoError(t, err)
	return New(snap)
}

func TestCurvesForWell(t *testing.T) {
	tr := fixture(t)
	curves := tr.CurvesForWell("well-15_9-13")
	ids := []string{curves[0].ID, curves[1].ID}
	assert.ElementsMatch(t, []string{"curve-gr", "curve-rhob"}, ids)
}

func TestWellForCurveFollowsDescribesEdge(t *testing.T) {
	tr := fixture(t)
	w, ok := tr.WellForCurve("curve-rhob")
	require.True(t, ok)
	assert.Equal(t, "well-15_9-13", w.ID)
}

func TestNeighborsSizeMatchesEdgeCount(t *testing.T) {
	tr := fixture(t)
	n := tr.Neighbors("well-15_9-13", Incoming, "describes", nil)
	assert.Len(t, n, 2)
}

func TestNeighborsParallelEdgesReturnOneEntryPerEdge(t *testing.T) {
	nodes := `[
		{"id":"well-1","type":"document","attrs":{}},
		{"id":"curve-1","type":"curve","attrs":{}}
	]`
	edges := `[
		{"source":"curve-1","target":"well-1","relation":"describes"},
		{"source":"curve-1","target":"well-1","relation":"describes"}
	]`
	snap, err := wellgraph.LoadFromBytes([]byte(nodes), []byte(edges))
	require.NoError(t, err)
	tr := New(snap)

	n := tr.Neighbors("well-1", Incoming, "describes", nil)
	require.Len(t, n, 2, "two parallel describes edges must yield two entries")
	assert.Equal(t, "curve-1", n[0].ID)
	assert.Equal(t, "curve-1", n[1].ID)
}

func TestRelationshipSummary(t *testing.T) {
	tr := fixture(t)
	out, in := tr.RelationshipSummary("well-15_9-13")
	assert.Equal(t, 1, out["reports_on"])
	assert.Equal(t, 2, in["describes"])
}

func TestExpandZeroHopsReturnsSeedsUnchanged(t *testing.T) {
	tr := fixture(t)
	seed, _ := tr.GetNode("well-15_9-13")
	out, err := tr.Expand([]wellgraph.Node{seed}, Outgoing, "", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, seed.ID, out[0].ID)
}

func TestExpandNegativeHopsIsInvalid(t *testing.T) {
	tr := fixture(t)
	_, err := tr.Expand(nil, Outgoing, "", -1)
	assert.Error(t, err)
}

func TestExpandOneHop(t *testing.T) {
	tr := fixture(t)
	seed, _ := tr.GetNode("well-15_9-13")
	out, err := tr.Expand([]wellgraph.Node{seed}, Outgoing, "", 1)
	require.NoError(t, err)
	ids := make([]string, len(out))
	for i, n := range out {
		ids[i] = n.ID
	}
	assert.Contains(t, ids, "well-15_9-13")
	assert.Contains(t, ids, "site-a")
}

func TestUnknownIDReturnsEmpty(t *testing.T) {
	tr := fixture(t)
	assert.Empty(t, tr.Neighbors("does-not-exist", Outgoing, "", nil))
}
