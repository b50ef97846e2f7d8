package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_Float64(t *testing.T) {
	v := Vector{1, 0.5, -2}
	f := v.Float64()

	assert.Equal(t, []float64{1, 0.5, -2}, f)
	f[0] = 99
	assert.Equal(t, float32(1), v[0], "conversion must copy")
	assert.Equal(t, 3, v.Dim())
}

func TestVector_Clone(t *testing.T) {
	var nilVec Vector
	assert.Nil(t, nilVec.Clone())

	v := Vector{1, 2}
	c := v.Clone()
	c[0] = 5
	assert.Equal(t, float32(1), v[0])
}

func TestCandidate_TextAndSelected(t *testing.T) {
	c := Candidate{ID: "a"}
	assert.Empty(t, c.Text())
	assert.False(t, c.Selected())

	c.Metadata = map[string]any{"text": "hello", "selected": true}
	assert.Equal(t, "hello", c.Text())
	assert.True(t, c.Selected())
}

func TestAttachSelection(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Vector: Vector{1, 0}, Metadata: map[string]any{"text": "alpha"}},
		{ID: "b", Vector: Vector{0, 1}, Metadata: map[string]any{"text": "beta"}},
		{ID: "c", Vector: Vector{1, 1}},
	}
	result := &SelectionResult{Selected: []Selection{{Index: 1, ID: "b"}}}

	out := AttachSelection(candidates, result)
	require.Len(t, out, 3)

	assert.Equal(t, false, out[0].Metadata["selected"])
	assert.Equal(t, true, out[1].Metadata["selected"])
	assert.Equal(t, false, out[2].Metadata["selected"])
	assert.Equal(t, "alpha", out[0].Metadata["text"])

	// inputs untouched
	_, ok := candidates[0].Metadata["selected"]
	assert.False(t, ok)
	assert.Nil(t, candidates[2].Metadata)
}

func TestAttachSelection_KeepsExistingFlag(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Metadata: map[string]any{"selected": "pinned"}},
	}

	out := AttachSelection(candidates, &SelectionResult{})
	assert.Equal(t, "pinned", out[0].Metadata["selected"])
}

func TestAttachSelection_NilResult(t *testing.T) {
	out := AttachSelection([]Candidate{{ID: "a"}}, nil)
	assert.Equal(t, false, out[0].Metadata["selected"])
}

func TestVectors(t *testing.T) {
	candidates := []Candidate{{Vector: Vector{1}}, {Vector: Vector{2}}}
	assert.Equal(t, []Vector{{1}, {2}}, Vectors(candidates))
}
