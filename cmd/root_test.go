package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "writing-style", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommand_HasGlobalFlags(t *testing.T) {
	for _, flagName := range []string{"data-dir", "dry-run", "check"} {
		flag := rootCmd.PersistentFlags().Lookup(flagName)
		assert.NotNil(t, flag, "root command should have --%s flag", flagName)
	}
}
