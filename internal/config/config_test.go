package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsSane(t *testing.T) {
	c := Default()
	assert.Equal(t, 60*time.Second, c.Timeout)
	assert.Equal(t, ProofLevelDefault, c.ProofLevel)
	assert.False(t, c.Plain)
	assert.False(t, c.AllowDivision)
	assert.Equal(t, LimitStrategySMTAndCalculus, c.LimitStrategy)
	assert.True(t, c.TryNesting)
}

func TestParseLimitStrategy(t *testing.T) {
	assert.Equal(t, LimitStrategySMT, ParseLimitStrategy("smt"))
	assert.Equal(t, LimitStrategyCalculus, ParseLimitStrategy("calculus"))
	assert.Equal(t, LimitStrategySMTAndCalculus, ParseLimitStrategy("smtAndCalculus"))
	assert.Equal(t, LimitStrategySMTAndCalculus, ParseLimitStrategy("garbage"))
}

func TestLimitStrategyString(t *testing.T) {
	assert.Equal(t, "smt", LimitStrategySMT.String())
	assert.Equal(t, "calculus", LimitStrategyCalculus.String())
	assert.Equal(t, "smtAndCalculus", LimitStrategySMTAndCalculus.String())
}

func TestSoftTimeoutIsFractionOfHard(t *testing.T) {
	c := Default()
	c.Timeout = 100 * time.Second

	assert.Equal(t, 70*time.Second, c.SoftTimeout())
	assert.Equal(t, 100*time.Second, c.HardTimeout())
	assert.True(t, c.SoftTimeout() < c.HardTimeout())
}
