package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netsec-pkg/zkg/internal/solver"
)

func TestParseRequest_NameOnlyDefaultsToAny(t *testing.T) {
	req := parseRequest("foo")
	require.Equal(t, solver.Request{Name: "foo", Constraint: "*"}, req)
}

func TestParseRequest_NameAtConstraint(t *testing.T) {
	req := parseRequest("foo@>=1.0.0")
	require.Equal(t, solver.Request{Name: "foo", Constraint: ">=1.0.0"}, req)
}

func TestParseRequest_BranchConstraint(t *testing.T) {
	req := parseRequest("foo@branch=master")
	require.Equal(t, solver.Request{Name: "foo", Constraint: "branch=master"}, req)
}
