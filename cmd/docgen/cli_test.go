package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditCommandSurface(t *testing.T) {
	assert.Equal(t, "audit [path]", auditCmd.Use)
	require.NotNil(t, auditCmd.Flags().Lookup("no-ai"))
	require.NotNil(t, auditCmd.Flags().Lookup("write"))
	assert.Nil(t, auditCmd.Flags().Lookup("repo"), "the repository is a positional argument")

	assert.NoError(t, auditCmd.Args(auditCmd, nil))
	assert.NoError(t, auditCmd.Args(auditCmd, []string{"."}))
	assert.Error(t, auditCmd.Args(auditCmd, []string{".", "extra"}))
}

func TestDiagramCommandSurface(t *testing.T) {
	require.NotNil(t, diagramCmd.Flags().Lookup("ai"))
	require.NotNil(t, diagramCmd.Flags().Lookup("layout"))
	out := diagramCmd.Flags().Lookup("output")
	require.NotNil(t, out)
	assert.Equal(t, "o", out.Shorthand)
}
