// Package sky holds celestial-sphere geometry: unit vectors, angular separations and cone bounds.
package sky

import "math"

// Coordinate and radius domains, in degrees.
const (
	MaxConeRadius     = 10.0
	MaxNeighborRadius = 5.0
)

const deg = math.Pi / 180

// ToUnitVector converts (ra, dec) in degrees to a point on the unit sphere.
func ToUnitVector(raDeg, decDeg float64) [3]float64 {
	ra := raDeg * deg
	dec := decDeg * deg
	return [3]float64{
		math.Cos(dec) * math.Cos(ra),
		math.Cos(dec) * math.Sin(ra),
		math.Sin(dec),
	}
}

// AngularDistance returns the great-circle separation in degrees between two sky positions.
func AngularDistance(ra1, dec1, ra2, dec2 float64) float64 {
	return Separation(ToUnitVector(ra1, dec1), ToUnitVector(ra2, dec2))
}

// Separation returns the angle in degrees between two unit vectors. The chord
// form stays accurate for arcsecond-scale separations, unlike acos of the dot product.
func Separation(a, b [3]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return ChordToDegrees(math.Sqrt(sum))
}

// ChordToDegrees converts the L2 distance between two unit vectors to an angle in degrees.
// L2^2 = 2*(1 - cos(angle)), so angle = 2*arcsin(L2/2).
func ChordToDegrees(l2 float64) float64 {
	half := l2 / 2
	if half > 1 {
		half = 1
	}
	return 2 * math.Asin(half) / deg
}

// ValidRA reports whether ra is in [0, 360).
func ValidRA(ra float64) bool { return ra >= 0 && ra < 360 }

// ValidDec reports whether dec is in [-90, 90].
func ValidDec(dec float64) bool { return dec >= -90 && dec <= 90 }

// ValidRadius reports whether r is in (0, limit].
func ValidRadius(r, limit float64) bool { return r > 0 && r <= limit }

// Box is an RA/Dec rectangle that contains a cone. RA bounds may wrap through 0.
type Box struct {
	RAMin, RAMax   float64
	DecMin, DecMax float64
	// AllRA is set when the cone touches a pole and every RA qualifies.
	AllRA bool
}

// Wraps reports whether the RA range crosses ra=0.
func (b Box) Wraps() bool { return !b.AllRA && b.RAMin > b.RAMax }

// BoundingBox returns a box that fully contains the cone around (ra, dec) with radius r degrees.
func BoundingBox(ra, dec, r float64) Box {
	b := Box{DecMin: math.Max(dec-r, -90), DecMax: math.Min(dec+r, 90)}
	if b.DecMin <= -90 || b.DecMax >= 90 {
		b.AllRA = true
		return b
	}

	// RA half-width grows with 1/cos(dec) at the cone's extreme declination.
	maxAbsDec := math.Max(math.Abs(b.DecMin), math.Abs(b.DecMax))
	halfWidth := r / math.Cos(maxAbsDec*deg)
	if halfWidth >= 180 {
		b.AllRA = true
		return b
	}

	b.RAMin = normalizeRA(ra - halfWidth)
	b.RAMax = normalizeRA(ra + halfWidth)
	return b
}

func normalizeRA(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	return ra
}
