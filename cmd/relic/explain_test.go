package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/sql/planner"
)

func TestDescribePlanSeqScanWithPredicate(t *testing.T) {
	stmts, errs := parser.ParseAll(`SELECT * FROM t WHERE t.id = 1;`)
	require.Empty(t, errs)
	require.Len(t, stmts, 1)

	plan, err := planner.Build(stmts[0])
	require.NoError(t, err)

	node := describePlan(plan)
	require.Equal(t, "Project", node.Op)
	require.Equal(t, "SeqScan", node.Child.Op)
	require.Equal(t, "t", node.Child.Table)
	require.Equal(t, "t.id = 1", node.Child.Predicate)
}

func TestDescribePlanJoin(t *testing.T) {
	stmts, errs := parser.ParseAll(`SELECT s.name FROM students s JOIN courses c ON s.id = c.cid;`)
	require.Empty(t, errs)
	plan, err := planner.Build(stmts[0])
	require.NoError(t, err)

	node := describePlan(plan)
	require.Equal(t, "NestedLoopJoin", node.Child.Op)
	require.Equal(t, "s.id = c.cid", node.Child.Predicate)
}
