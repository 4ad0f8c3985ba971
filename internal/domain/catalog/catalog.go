// Package catalog holds the astronomical point-source model and cone query parameters.
package catalog

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/taarya/internal/domain"
	"github.com/kailas-cloud/taarya/internal/domain/sky"
)

// Limits for catalog queries.
const (
	DefaultConeLimit      = 100
	DefaultNeighborLimit  = 20
	DefaultNeighborRadius = 0.1
	MaxLimit              = 10000
)

// Record is an astronomical point source. ID is immutable once assigned; RA and Dec are always set.
type Record struct {
	ID              string   `json:"source_id"`
	RA              float64  `json:"ra"`
	Dec             float64  `json:"dec"`
	Parallax        *float64 `json:"parallax,omitempty"`
	ProperMotionRA  *float64 `json:"pmra,omitempty"`
	ProperMotionDec *float64 `json:"pmdec,omitempty"`
	MagnitudeG      *float64 `json:"phot_g_mean_mag,omitempty"`
	MagnitudeBP     *float64 `json:"phot_bp_mean_mag,omitempty"`
	MagnitudeRP     *float64 `json:"phot_rp_mean_mag,omitempty"`
	QualityFlag     *float64 `json:"ruwe,omitempty"`
	SourceCatalog   string   `json:"catalog_source"`
}

// Validate checks identity and coordinate domains.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: source_id is required", domain.ErrInvalidParameter)
	}
	if !sky.ValidRA(r.RA) {
		return fmt.Errorf("%w: ra %g outside [0,360)", domain.ErrInvalidParameter, r.RA)
	}
	if !sky.ValidDec(r.Dec) {
		return fmt.Errorf("%w: dec %g outside [-90,90]", domain.ErrInvalidParameter, r.Dec)
	}
	return nil
}

// Hit is a record annotated with its angular distance (degrees) from the query center.
type Hit struct {
	Record
	AngularDistance float64 `json:"angular_distance"`
}

// Cone is a validated (ra, dec, radius) triple.
type Cone struct {
	RA     float64 `json:"ra"`
	Dec    float64 `json:"dec"`
	Radius float64 `json:"radius"`
}

// NewCone validates the cone against the given maximum radius.
func NewCone(ra, dec, radius, maxRadius float64) (Cone, error) {
	if !sky.ValidRA(ra) {
		return Cone{}, fmt.Errorf("%w: ra %g outside [0,360)", domain.ErrInvalidParameter, ra)
	}
	if !sky.ValidDec(dec) {
		return Cone{}, fmt.Errorf("%w: dec %g outside [-90,90]", domain.ErrInvalidParameter, dec)
	}
	if !sky.ValidRadius(radius, maxRadius) {
		return Cone{}, fmt.Errorf("%w: radius %g outside (0,%g]", domain.ErrInvalidParameter, radius, maxRadius)
	}
	return Cone{RA: ra, Dec: dec, Radius: radius}, nil
}

// Contains reports whether (ra, dec) lies within the cone.
func (c Cone) Contains(ra, dec float64) bool {
	return sky.AngularDistance(c.RA, c.Dec, ra, dec) <= c.Radius
}

// Filters are the optional radial-search constraints, combined with AND.
type Filters struct {
	MagnitudeCeiling *float64
	ParallaxFloor    *float64
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.MagnitudeCeiling == nil && f.ParallaxFloor == nil
}

// Match reports whether r satisfies every supplied filter. Records missing a filtered field do not match.
func (f Filters) Match(r *Record) bool {
	if f.MagnitudeCeiling != nil {
		if r.MagnitudeG == nil || *r.MagnitudeG > *f.MagnitudeCeiling {
			return false
		}
	}
	if f.ParallaxFloor != nil {
		if r.Parallax == nil || *r.Parallax < *f.ParallaxFloor {
			return false
		}
	}
	return true
}

// ValidateLimit checks that limit is in [1, MaxLimit].
func ValidateLimit(limit int) error {
	if limit < 1 || limit > MaxLimit {
		return fmt.Errorf("%w: limit %d outside [1,%d]", domain.ErrInvalidParameter, limit, MaxLimit)
	}
	return nil
}

// ValidateID checks an identifier is non-empty and has no whitespace.
func ValidateID(id string) error {
	if id == "" || strings.ContainsAny(id, " \t\r\n") {
		return fmt.Errorf("%w: malformed source_id %q", domain.ErrInvalidParameter, id)
	}
	return nil
}

// Query is a store-level cone query. ExcludeID drops one record from the result.
type Query struct {
	Cone      Cone
	Filters   Filters
	ExcludeID string
	Limit     int
}
