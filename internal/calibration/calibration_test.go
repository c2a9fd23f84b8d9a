package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateRequiresTwoSamples(t *testing.T) {
	e := New()
	assert.False(t, e.Ready())

	e.Add(0, 0)
	assert.False(t, e.Ready())
	_, ok := e.Estimate()
	assert.False(t, ok)

	e.Add(90, 1000)
	assert.True(t, e.Ready())
	_, ok = e.Estimate()
	assert.True(t, ok)
}

func TestEstimateMedianOfCandidates(t *testing.T) {
	// S4: samples for axis 0.
	e := New()
	e.Add(0, 0)
	e.Add(90, 1000)
	e.Add(180, 1950)
	e.Add(270, 3000)

	spr, ok := e.Estimate()
	assert.True(t, ok)
	assert.Equal(t, 4000, spr)
}

func TestEstimateScaleInvariant(t *testing.T) {
	e1 := New()
	e1.Add(0, 0)
	e1.Add(90, 1000)
	e1.Add(180, 1950)
	e1.Add(270, 3000)
	spr1, ok := e1.Estimate()
	assert.True(t, ok)

	const c = 3
	e2 := New()
	e2.Add(0, 0*c)
	e2.Add(90, 1000*c)
	e2.Add(180, 1950*c)
	e2.Add(270, 3000*c)
	spr2, ok := e2.Estimate()
	assert.True(t, ok)

	assert.Equal(t, spr1*c, spr2)
}

func TestResetClearsSamples(t *testing.T) {
	e := New()
	e.Add(0, 0)
	e.Add(90, 1000)
	e.Reset()

	assert.Equal(t, 0, e.Count())
	assert.False(t, e.Ready())
}

func TestSignDisagreementWrapsAngleBy360(t *testing.T) {
	e := New()
	// Angle decreases (wraps past 360) while steps increase.
	e.Add(350, 0)
	e.Add(10, 500)

	spr, ok := e.Estimate()
	assert.True(t, ok)
	assert.Greater(t, spr, 0)
}
