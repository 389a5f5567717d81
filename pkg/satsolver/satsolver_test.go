package satsolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/druid-atpg/pkg/satsolver"
)

func TestSolveTrivialSatisfiable(t *testing.T) {
	d := satsolver.New(0)
	a := d.NewVar()
	b := d.NewVar()
	d.AddClause(satsolver.Pos(a), satsolver.Pos(b))

	ok, err := d.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	av, defined := d.Value(a)
	bv, _ := d.Value(b)
	assert.True(t, defined)
	assert.True(t, av || bv)
}

func TestSolveUnsatWithConflictingClauses(t *testing.T) {
	d := satsolver.New(0)
	a := d.NewVar()
	d.AddClause(satsolver.Pos(a))
	d.AddClause(satsolver.Neg(a))

	ok, err := d.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSolveRespectsAssumptions(t *testing.T) {
	d := satsolver.New(0)
	a := d.NewVar()
	b := d.NewVar()
	// a -> b
	d.AddClause(satsolver.Neg(a), satsolver.Pos(b))

	ok, err := d.Solve(context.Background(), []satsolver.Lit{satsolver.Pos(a)})
	require.NoError(t, err)
	require.True(t, ok)
	bv, defined := d.Value(b)
	require.True(t, defined)
	assert.True(t, bv)
}

func TestSolveReusableAcrossAssumptionSets(t *testing.T) {
	d := satsolver.New(0)
	a := d.NewVar()
	b := d.NewVar()
	d.AddClause(satsolver.Pos(a), satsolver.Pos(b))

	ok1, err := d.Solve(context.Background(), []satsolver.Lit{satsolver.Neg(a)})
	require.NoError(t, err)
	require.True(t, ok1)
	bv, _ := d.Value(b)
	assert.True(t, bv)

	ok2, err := d.Solve(context.Background(), []satsolver.Lit{satsolver.Neg(b)})
	require.NoError(t, err)
	require.True(t, ok2)
	av, _ := d.Value(a)
	assert.True(t, av)
}

func TestSolveXorRequiresBacktracking(t *testing.T) {
	d := satsolver.New(0)
	a := d.NewVar()
	b := d.NewVar()
	c := d.NewVar()
	// c <-> (a XOR b), encoded as four clauses.
	d.AddClause(satsolver.Neg(a), satsolver.Neg(b), satsolver.Neg(c))
	d.AddClause(satsolver.Pos(a), satsolver.Pos(b), satsolver.Neg(c))
	d.AddClause(satsolver.Pos(a), satsolver.Neg(b), satsolver.Pos(c))
	d.AddClause(satsolver.Neg(a), satsolver.Pos(b), satsolver.Pos(c))

	ok, err := d.Solve(context.Background(), []satsolver.Lit{satsolver.Pos(c)})
	require.NoError(t, err)
	require.True(t, ok)
	av, _ := d.Value(a)
	bv, _ := d.Value(b)
	assert.True(t, av != bv, "c true forces a XOR b")
}
