// Package search holds the orchestrator's request and response model and the pure routing classifier.
package search

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/taarya/internal/domain"
	"github.com/kailas-cloud/taarya/internal/domain/catalog"
	"github.com/kailas-cloud/taarya/internal/domain/sky"
)

// Request limits.
const (
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 500
)

// Params is the raw, optional-field form of a request as received from a boundary layer.
type Params struct {
	Text     *string
	RA       *float64
	Dec      *float64
	Radius   *float64
	SourceID *string
	Limit    int
}

// Request is a validated search request. Each signal is an explicit optional.
type Request struct {
	text  *string
	cone  *catalog.Cone
	id    *string
	limit int
}

// New validates params. A partial spatial triple is rejected; blank text and ids count as absent.
// A request with no signal at all is still constructible; Classify reports it as unclassifiable.
func New(p Params) (Request, error) {
	var r Request

	if p.Text != nil {
		t := strings.TrimSpace(*p.Text)
		if len(t) > MaxQueryLength {
			return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidParameter, MaxQueryLength)
		}
		if t != "" {
			r.text = &t
		}
	}

	spatialSet := 0
	for _, v := range []*float64{p.RA, p.Dec, p.Radius} {
		if v != nil {
			spatialSet++
		}
	}
	switch spatialSet {
	case 0:
	case 3:
		c, err := catalog.NewCone(*p.RA, *p.Dec, *p.Radius, sky.MaxConeRadius)
		if err != nil {
			return Request{}, err
		}
		r.cone = &c
	default:
		return Request{}, fmt.Errorf("%w: ra, dec and radius must be given together", domain.ErrInvalidParameter)
	}

	if p.SourceID != nil {
		id := strings.TrimSpace(*p.SourceID)
		if id != "" {
			if err := catalog.ValidateID(id); err != nil {
				return Request{}, err
			}
			r.id = &id
		}
	}

	limit := p.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return Request{}, fmt.Errorf("%w: limit %d outside [1,%d]", domain.ErrInvalidParameter, limit, MaxLimit)
	}
	r.limit = limit

	return r, nil
}

// Text returns the free-text query, if present.
func (r Request) Text() (string, bool) {
	if r.text == nil {
		return "", false
	}
	return *r.text, true
}

// Cone returns the spatial triple, if present.
func (r Request) Cone() (catalog.Cone, bool) {
	if r.cone == nil {
		return catalog.Cone{}, false
	}
	return *r.cone, true
}

// SourceID returns the entity identifier, if present.
func (r Request) SourceID() (string, bool) {
	if r.id == nil {
		return "", false
	}
	return *r.id, true
}

// Limit returns the per-backend result limit.
func (r Request) Limit() int { return r.limit }
