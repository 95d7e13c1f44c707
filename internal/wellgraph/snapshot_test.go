package wellgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	nodesJSON := `[
		{"id":"well-1","type":"document","attrs":{"well_name":"Sleipner East Appr"}},
		{"id":"curve-1","type":"curve","attrs":{"mnemonic":"GR"}},
		{"id":"curve-2","type":"curve","attrs":{"mnemonic":"RHOB"}},
		{"id":"curve-3","type":"curve","attrs":{"mnemonic":"NPHI"}}
	]`
	edgesJSON := `[
		{"source":"curve-1","target":"well-1","relation":"describes"},
		{"source":"curve-2","target":"well-1","relation":"describes"},
		{"source":"curve-3","target":"well-1","relation":"describes"}
	]`
	snap, err := LoadFromBytes([]byte(nodesJSON), []byte(edgesJSON))
	require.NoError(t, err)
	return snap
}

func TestEnrichmentWellName(t *testing.T) {
	snap := fixtureSnapshot(t)
	curve, ok := snap.GetNode("curve-1")
	require.True(t, ok)
	name, ok := curve.Attr("_well_name")
	require.True(t, ok)
	assert.Equal(t, "Sleipner East Appr", name)
}

func TestEnrichmentCurveMnemonics(t *testing.T) {
	snap := fixtureSnapshot(t)
	well, ok := snap.GetNode("well-1")
	require.True(t, ok)
	mnemonics, ok := well.Attrs["_curve_mnemonics"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"GR", "RHOB", "NPHI"}, mnemonics)
}

func TestEnrichmentCapsAtTen(t *testing.T) {
	var nodes []byte
	nodes = append(nodes, []byte(`[{"id":"well-1","type":"document","attrs":{"well_name":"W"}}`)...)
	var edges []byte
	edges = append(edges, []byte(`[`)...)
	for i := 0; i < 15; i++ {
		nodes = append(nodes, []byte(`,{"id":"curve-`+string(rune('a'+i))+`","type":"curve","attrs":{"mnemonic":"M`+string(rune('a'+i))+`"}}`)...)
		if i > 0 {
			edges = append(edges, ',')
		}
		edges = append(edges, []byte(`{"source":"curve-`+string(rune('a'+i))+`","target":"well-1","relation":"describes"}`)...)
	}
	nodes = append(nodes, ']')
	edges = append(edges, ']')

	snap, err := LoadFromBytes(nodes, edges)
	require.NoError(t, err)
	well, ok := snap.GetNode("well-1")
	require.True(t, ok)
	mnemonics, ok := well.Attrs["_curve_mnemonics"].([]string)
	require.True(t, ok)
	assert.Len(t, mnemonics, 10)
}

func TestEnrichmentIdempotent(t *testing.T) {
	snap1 := fixtureSnapshot(t)
	snap2 := fixtureSnapshot(t)
	snap2.enrich()
	h1, err := snap1.SHA256()
	require.NoError(t, err)
	h2, err := snap2.SHA256()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestDuplicateNodeIDRejected(t *testing.T) {
	_, err := LoadFromBytes([]byte(`[{"id":"a","type":"document"},{"id":"a","type":"document"}]`), []byte(`[]`))
	assert.Error(t, err)
}

func TestNodesByType(t *testing.T) {
	snap := fixtureSnapshot(t)
	curves := snap.NodesByType("curve")
	assert.Len(t, curves, 3)
}
