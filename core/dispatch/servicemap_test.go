package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxidispatch/core/model"
)

func TestServiceMap_Unbound(t *testing.T) {
	m := NewServiceMap(nil, nil)
	assert.ErrorIs(t, m.AddNode(model.Coord{}, nil), ErrNoEnvironment)
}

func TestServiceMap_AddNodeValidates(t *testing.T) {
	env := newFakeEnv()
	ghost := model.Coord{X: 4, Y: 4}
	env.missing[ghost] = true
	m := NewServiceMap(env, nil)

	err := m.AddNode(ghost, nil)
	var une *UnknownNodeError
	require.True(t, errors.As(err, &une))
	assert.Equal(t, ghost, une.Node)
	assert.Nil(t, une.Neighbour)

	err = m.AddNode(model.Coord{}, []model.Neighbour{
		{Label: "a", Coord: model.Coord{X: 1}},
		{Label: "b", Coord: ghost},
	})
	require.True(t, errors.As(err, &une))
	require.NotNil(t, une.Neighbour)
	assert.Equal(t, ghost, *une.Neighbour)
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.Contains(t, err.Error(), "(4,4)")
	assert.Zero(t, m.Len(), "a failed node must not be stored")

	require.NoError(t, m.AddNode(model.Coord{}, []model.Neighbour{{Label: "a", Coord: model.Coord{X: 2, Y: 1}}}))
	edges, ok := m.Neighbours(model.Coord{})
	require.True(t, ok)
	assert.Equal(t, model.Edge{Label: "a", Distance: 3}, edges[model.Coord{X: 2, Y: 1}])
}

func TestServiceMap_ImportAdoptsWhenEmpty(t *testing.T) {
	env := newFakeEnv()
	ghost := model.Coord{X: 9}
	env.missing[ghost] = true
	m := NewServiceMap(env, nil)
	in := model.Adjacency{
		ghost: {model.Coord{}: {Label: "x", Distance: 7}},
	}
	require.NoError(t, m.Import(in))
	edges, ok := m.Neighbours(ghost)
	require.True(t, ok)
	assert.Equal(t, 7.0, edges[model.Coord{}].Distance)

	in[ghost][model.Coord{}] = model.Edge{Label: "changed"}
	edges, _ = m.Neighbours(ghost)
	assert.Equal(t, "x", edges[model.Coord{}].Label)
}

func TestServiceMap_ImportMergesAndJoinsErrors(t *testing.T) {
	env := newFakeEnv()
	ghost := model.Coord{X: 9}
	env.missing[ghost] = true
	m := NewServiceMap(env, model.Adjacency{{}: {}})

	err := m.Import(model.Adjacency{
		{X: 1}: {{X: 2}: {Label: "ok", Distance: 100}},
		ghost:  {{}: {Label: "bad"}},
		{X: 3}: {ghost: {Label: "bad"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.Equal(t, 2, m.Len())

	edges, ok := m.Neighbours(model.Coord{X: 1})
	require.True(t, ok)
	// distances are recomputed from the topology
	assert.Equal(t, model.Edge{Label: "ok", Distance: 1}, edges[model.Coord{X: 2}])
}
