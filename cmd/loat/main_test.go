package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/config"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, path, err := parseArgs([]string{"input.koat"})
	require.NoError(t, err)
	assert.Equal(t, "input.koat", path)
	assert.Equal(t, config.Default().Timeout, cfg.Timeout)
	assert.Equal(t, config.ProofLevelDefault, cfg.ProofLevel)
	assert.False(t, cfg.Nonterm)
}

func TestParseArgsFlags(t *testing.T) {
	cfg, path, err := parseArgs([]string{
		"--timeout", "30",
		"--proof-level", "3",
		"--plain",
		"--allow-division",
		"--limit-strategy", "calculus",
		"--nonterm",
		"loop.t2",
	})
	require.NoError(t, err)
	assert.Equal(t, "loop.t2", path)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, config.ProofLevelVerbose, cfg.ProofLevel)
	assert.True(t, cfg.Plain)
	assert.True(t, cfg.AllowDivision)
	assert.Equal(t, config.LimitStrategyCalculus, cfg.LimitStrategy)
	assert.True(t, cfg.Nonterm)
}

func TestParseArgsEnforcesMinimumTimeout(t *testing.T) {
	cfg, _, err := parseArgs([]string{"--timeout", "1", "x.koat"})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestParseArgsRejectsMissingFile(t *testing.T) {
	_, _, err := parseArgs([]string{"--plain"})
	assert.Error(t, err)
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	_, _, err := parseArgs([]string{"--bogus", "x.koat"})
	assert.Error(t, err)
}

func TestParseArgsRejectsBadProofLevel(t *testing.T) {
	_, _, err := parseArgs([]string{"--proof-level", "9", "x.koat"})
	assert.Error(t, err)
}
