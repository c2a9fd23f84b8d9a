package ephemeris

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAzAltRADecRoundTrip(t *testing.T) {
	g := New()
	obs := Observer{LonRad: 0.2, LatRad: 0.8, ElevM: 200}
	when := time.Date(2026, 3, 15, 21, 30, 0, 0, time.UTC)

	raIn, decIn := 9.5, 33.0
	az, alt := g.ComputeAzAlt(raIn, decIn, obs, when)
	require := assert.New(t)
	require.Greater(alt, -90.0)

	raOut, decOut := g.RADecOf(az, alt, obs, when)

	assert.InDelta(t, raIn, raOut, 1e-6)
	assert.InDelta(t, decIn, decOut, 1e-6)
}

func TestVisibleObjectsOnlyAboveHorizon(t *testing.T) {
	g := New()
	obs := Observer{LonRad: 0.2, LatRad: 0.8, ElevM: 200}
	when := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	visible := g.VisibleObjects(obs, when)
	for _, v := range visible {
		obj, ok := g.Object(v.ID)
		assert.True(t, ok)
		ra, dec := obj.RADec(when)
		_, alt := g.ComputeAzAlt(ra, dec, obs, when)
		assert.Greater(t, alt, 0.0)
	}
}

func TestObjectCatalogIndexable(t *testing.T) {
	g := New()

	sun, ok := g.Object(0)
	assert.True(t, ok)
	assert.Equal(t, "Sun", sun.Name)

	_, ok = g.Object(-1)
	assert.False(t, ok)

	_, ok = g.Object(1000)
	assert.False(t, ok)
}
