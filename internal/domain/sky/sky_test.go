package sky

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestToUnitVector_Origin(t *testing.T) {
	v := ToUnitVector(0, 0)
	if !almost(v[0], 1, 1e-9) || !almost(v[1], 0, 1e-9) || !almost(v[2], 0, 1e-9) {
		t.Fatalf("want (1,0,0) got (%f,%f,%f)", v[0], v[1], v[2])
	}
}

func TestToUnitVector_NorthPole(t *testing.T) {
	v := ToUnitVector(123, 90)
	if !almost(v[2], 1, 1e-9) {
		t.Fatalf("want z=1 got %f", v[2])
	}
}

func TestAngularDistance_SamePoint(t *testing.T) {
	if d := AngularDistance(45, 0.5, 45, 0.5); d != 0 {
		t.Fatalf("want 0, got %g", d)
	}
}

func TestAngularDistance_AlongEquator(t *testing.T) {
	d := AngularDistance(10, 0, 12, 0)
	if !almost(d, 2, 1e-9) {
		t.Fatalf("want 2, got %g", d)
	}
}

func TestAngularDistance_WrapsRA(t *testing.T) {
	d := AngularDistance(359.5, 0, 0.5, 0)
	if !almost(d, 1, 1e-9) {
		t.Fatalf("want 1, got %g", d)
	}
}

func TestAngularDistance_ShrinksNearPole(t *testing.T) {
	d := AngularDistance(0, 89, 180, 89)
	if !almost(d, 2, 1e-9) {
		t.Fatalf("want 2 across the pole, got %g", d)
	}
}

func TestSeparation(t *testing.T) {
	tests := []struct {
		name          string
		ra1, dec1     float64
		ra2, dec2     float64
		want, epsilon float64
	}{
		{"quarter circle", 0, 0, 90, 0, 90, 1e-9},
		{"equator to pole", 30, 0, 200, 90, 90, 1e-9},
		{"antipodal", 0, 0, 180, 0, 180, 1e-6},
		{"one arcsecond", 45, 0.5, 45, 0.5 + 1.0/3600, 1.0 / 3600, 1e-12},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Separation(ToUnitVector(tc.ra1, tc.dec1), ToUnitVector(tc.ra2, tc.dec2))
			if !almost(got, tc.want, tc.epsilon) {
				t.Fatalf("want %g, got %g", tc.want, got)
			}
		})
	}
}

func TestChordToDegrees_ClampsAntipodal(t *testing.T) {
	if d := ChordToDegrees(2.0000001); !almost(d, 180, 1e-6) {
		t.Fatalf("want 180, got %g", d)
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"ra zero", ValidRA(0), true},
		{"ra 360", ValidRA(360), false},
		{"ra negative", ValidRA(-0.1), false},
		{"dec pole", ValidDec(-90), true},
		{"dec over", ValidDec(90.01), false},
		{"radius zero", ValidRadius(0, MaxConeRadius), false},
		{"radius max", ValidRadius(10, MaxConeRadius), true},
		{"radius over neighbor cap", ValidRadius(5.5, MaxNeighborRadius), false},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestBoundingBox_ContainsConeEdge(t *testing.T) {
	b := BoundingBox(45, 60, 1)
	if b.AllRA || b.Wraps() {
		t.Fatalf("unexpected box %+v", b)
	}
	// a point 1 degree away due east must fall inside the RA range
	ra := 45 + 1/math.Cos(60*math.Pi/180)
	if ra > b.RAMax+1e-9 {
		t.Fatalf("ra %g outside box max %g", ra, b.RAMax)
	}
}

func TestBoundingBox_WrapsAtZero(t *testing.T) {
	b := BoundingBox(0.2, 0, 1)
	if !b.Wraps() {
		t.Fatalf("expected wrapped box, got %+v", b)
	}
	if !almost(b.RAMin, 359.2, 1e-3) || !almost(b.RAMax, 1.2, 1e-3) {
		t.Fatalf("unexpected RA range %g..%g", b.RAMin, b.RAMax)
	}
}

func TestBoundingBox_PoleCoversAllRA(t *testing.T) {
	if b := BoundingBox(10, 89.5, 1); !b.AllRA {
		t.Fatalf("expected AllRA, got %+v", b)
	}
}
