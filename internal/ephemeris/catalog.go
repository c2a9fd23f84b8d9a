package ephemeris

import (
	"math"
	"time"
)

// defaultCatalog mirrors the original daemon's object list: the Sun, the
// Moon, the five naked-eye planets, then a run of named bright stars,
// sorted by name — the same ordering `sorted(ephem.stars.db)` produced.
func defaultCatalog() []SkyObject {
	catalog := []SkyObject{
		{Name: "Sun", RADec: sunRADec},
		{Name: "Moon", RADec: moonRADec},
		{Name: "Mercury", RADec: planetRADec(mercuryElements)},
		{Name: "Venus", RADec: planetRADec(venusElements)},
		{Name: "Mars", RADec: planetRADec(marsElements)},
		{Name: "Jupiter", RADec: planetRADec(jupiterElements)},
		{Name: "Saturn", RADec: planetRADec(saturnElements)},
	}
	catalog = append(catalog, namedStars()...)
	return catalog
}

// namedStars returns a short, fixed-epoch list of bright navigational
// stars, sorted by name as the original catalog's sorted(ephem.stars.db)
// produced.
func namedStars() []SkyObject {
	stars := []struct {
		name       string
		raH, decD  float64
	}{
		{"Aldebaran", 4.598677, 16.509302},
		{"Altair", 19.846388, 8.868321},
		{"Antares", 16.490128, -26.432002},
		{"Arcturus", 14.261167, 19.182409},
		{"Betelgeuse", 5.919529, 7.407064},
		{"Canopus", 6.399195, -52.695661},
		{"Capella", 5.278150, 45.997991},
		{"Deneb", 20.690532, 45.280339},
		{"Fomalhaut", 22.960847, -29.622237},
		{"Polaris", 2.530195, 89.264109},
		{"Procyon", 7.655033, 5.224993},
		{"Regulus", 10.139531, 11.967208},
		{"Rigel", 5.242298, -8.201638},
		{"Sirius", 6.752481, -16.716116},
		{"Spica", 13.419884, -11.161321},
		{"Vega", 18.615649, 38.783692},
	}
	out := make([]SkyObject, 0, len(stars))
	for _, s := range stars {
		ra, dec := s.raH, s.decD
		out = append(out, SkyObject{
			Name: s.name,
			RADec: func(time.Time) (float64, float64) {
				return ra, dec
			},
		})
	}
	return out
}

// julianCenturiesJ2000 returns Julian centuries since J2000.0 for when.
func julianCenturiesJ2000(when time.Time) float64 {
	return (julianDate(when) - 2451545.0) / 36525.0
}

// sunRADec is a low-precision solar position (mean longitude + equation
// of center), accurate to a few arcminutes -- ample for an alt-az mount.
func sunRADec(when time.Time) (raHours, decDeg float64) {
	t := julianCenturiesJ2000(when)
	meanLon := math.Mod(280.46646+36000.76983*t, 360)
	meanAnom := math.Mod(357.52911+35999.05029*t, 360) * degToRad
	center := (1.914602-0.004817*t)*math.Sin(meanAnom) +
		0.019993*math.Sin(2*meanAnom)
	trueLon := meanLon + center
	obliquity := (23.439291 - 0.0130042*t) * degToRad

	lonRad := trueLon * degToRad
	ra := math.Atan2(math.Cos(obliquity)*math.Sin(lonRad), math.Cos(lonRad))
	dec := math.Asin(math.Sin(obliquity) * math.Sin(lonRad))

	raHours = math.Mod(ra*radToDeg/15.0, 24)
	if raHours < 0 {
		raHours += 24
	}
	return raHours, dec * radToDeg
}

// moonRADec is a low-precision lunar position from mean orbital elements,
// good to roughly a degree -- the Moon's orbit has large perturbations a
// full ELP2000 series would be needed to capture precisely.
func moonRADec(when time.Time) (raHours, decDeg float64) {
	t := julianCenturiesJ2000(when)
	lonRad := degToRad * math.Mod(218.316+481267.8813*t, 360)
	meanAnom := degToRad * math.Mod(134.963+477198.8676*t, 360)
	meanDist := degToRad * math.Mod(93.272+483202.0175*t, 360)

	lon := lonRad + degToRad*6.289*math.Sin(meanAnom)
	lat := degToRad * 5.128 * math.Sin(meanDist)
	obliquity := degToRad * (23.439291 - 0.0130042*t)

	sinDec := math.Sin(lat)*math.Cos(obliquity) + math.Cos(lat)*math.Sin(obliquity)*math.Sin(lon)
	dec := math.Asin(clamp(sinDec, -1, 1))

	y := math.Sin(lon)*math.Cos(obliquity) - math.Tan(lat)*math.Sin(obliquity)
	x := math.Cos(lon)
	ra := math.Atan2(y, x)

	raHours = math.Mod(ra*radToDeg/15.0, 24)
	if raHours < 0 {
		raHours += 24
	}
	return raHours, dec * radToDeg
}

// orbitalElements are mean heliocentric elements at J2000.0. Only the mean
// anomaly advances with time (at the rate implied by periodDays); the other
// elements are held fixed. This is the same class of low-precision data the
// original daemon's ephemeris library used internally for planet positions.
type orbitalElements struct {
	semiMajorAU   float64
	eccentricity  float64
	inclinationDeg float64
	meanLongDeg    float64
	longPerihelDeg float64
	longNodeDeg    float64
	periodDays     float64
}

var (
	mercuryElements = orbitalElements{0.387098, 0.205635, 7.005, 252.251, 77.457, 48.331, 87.969}
	venusElements   = orbitalElements{0.723332, 0.006772, 3.395, 181.980, 131.602, 76.680, 224.701}
	marsElements    = orbitalElements{1.523679, 0.093405, 1.850, 355.453, 336.041, 49.558, 686.980}
	jupiterElements = orbitalElements{5.202887, 0.048498, 1.304, 34.396, 14.728, 100.464, 4332.589}
	saturnElements  = orbitalElements{9.536676, 0.055723, 2.485, 49.954, 92.599, 113.665, 10759.22}

	earthElements = orbitalElements{1.000001, 0.016709, 0.000, 100.464, 102.937, 0.0, 365.256}
)

// planetRADec returns a RADec function computing geocentric apparent
// position via a two-body heliocentric ellipse for both Earth and the
// target planet, accurate to well under a degree over multi-year spans.
func planetRADec(el orbitalElements) func(time.Time) (float64, float64) {
	return func(when time.Time) (float64, float64) {
		jd := julianDate(when)
		d := jd - 2451545.0

		xe, ye, ze := heliocentricPosition(earthElements, d)
		xp, yp, zp := heliocentricPosition(el, d)

		xg, yg, zg := xp-xe, yp-ye, zp-ze

		obliquity := degToRad * 23.439291
		yEq := yg*math.Cos(obliquity) - zg*math.Sin(obliquity)
		zEq := yg*math.Sin(obliquity) + zg*math.Cos(obliquity)

		ra := math.Atan2(yEq, xg)
		dec := math.Atan2(zEq, math.Hypot(xg, yEq))

		raHours := math.Mod(ra*radToDeg/15.0, 24)
		if raHours < 0 {
			raHours += 24
		}
		return raHours, dec * radToDeg
	}
}

// heliocentricPosition returns the ecliptic heliocentric (x,y,z) in AU for
// a body's mean elements at d days since J2000.0, solving Kepler's
// equation by Newton iteration.
func heliocentricPosition(el orbitalElements, d float64) (x, y, z float64) {
	meanAnom := degToRad * math.Mod(el.meanLongDeg-el.longPerihelDeg+360.0*d/el.periodDays, 360)
	e := el.eccentricity

	E := meanAnom
	for i := 0; i < 8; i++ {
		E = E - (E-e*math.Sin(E)-meanAnom)/(1-e*math.Cos(E))
	}

	xOrb := el.semiMajorAU * (math.Cos(E) - e)
	yOrb := el.semiMajorAU * math.Sqrt(1-e*e) * math.Sin(E)

	w := degToRad * (el.longPerihelDeg - el.longNodeDeg)
	node := degToRad * el.longNodeDeg
	incl := degToRad * el.inclinationDeg

	cosW, sinW := math.Cos(w), math.Sin(w)
	xw := xOrb*cosW - yOrb*sinW
	yw := xOrb*sinW + yOrb*cosW

	cosI, sinI := math.Cos(incl), math.Sin(incl)
	xi := xw
	yi := yw * cosI
	zi := yw * sinI

	cosN, sinN := math.Cos(node), math.Sin(node)
	x = xi*cosN - yi*sinN
	y = xi*sinN + yi*cosN
	z = zi

	return x, y, z
}
