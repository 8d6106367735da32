package normalize

import (
	"testing"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

func TestMinMaxBasicRange(t *testing.T) {
	// Three elo ratings spread across the scale: best maps to 1.0, worst to
	// 0.0, the midpoint lands exactly halfway.
	values := []Value{
		{TeamID: 1, Raw: domain.Float(1600)},
		{TeamID: 2, Raw: domain.Float(1500)},
		{TeamID: 3, Raw: domain.Float(1400)},
	}

	got := MinMax(values, false)

	want := map[int64]float64{1: 1.0, 2: 0.5, 3: 0.0}
	for teamID, expected := range want {
		n := got[teamID]
		if n == nil {
			t.Fatalf("team %d: normalized value is null", teamID)
		}
		if *n != expected {
			t.Errorf("team %d: normalized = %v, want %v", teamID, *n, expected)
		}
	}
}

func TestMinMaxDegenerateAllEqual(t *testing.T) {
	values := []Value{
		{TeamID: 1, Raw: domain.Float(1.0)},
		{TeamID: 2, Raw: domain.Float(1.0)},
		{TeamID: 3, Raw: domain.Float(1.0)},
	}

	got := MinMax(values, false)

	for teamID, n := range got {
		if n == nil || *n != 0.5 {
			t.Errorf("team %d: normalized = %v, want 0.5 for equal raws", teamID, n)
		}
	}
}

func TestMinMaxSingleValue(t *testing.T) {
	values := []Value{
		{TeamID: 7, Raw: domain.Float(950.5)},
	}

	got := MinMax(values, false)
	if n := got[7]; n == nil || *n != 0.5 {
		t.Errorf("single observation should normalize to 0.5, got %v", n)
	}
}

func TestMinMaxNullPassthrough(t *testing.T) {
	values := []Value{
		{TeamID: 1, Raw: domain.Float(10)},
		{TeamID: 2, Raw: nil},
		{TeamID: 3, Raw: domain.Float(20)},
	}

	got := MinMax(values, false)

	if got[2] != nil {
		t.Errorf("null raw must stay null, got %v", *got[2])
	}
	if got[1] == nil || *got[1] != 0.0 {
		t.Errorf("team 1 normalized = %v, want 0.0", got[1])
	}
	if got[3] == nil || *got[3] != 1.0 {
		t.Errorf("team 3 normalized = %v, want 1.0", got[3])
	}
}

func TestMinMaxLowerIsBetterInverts(t *testing.T) {
	values := []Value{
		{TeamID: 1, Raw: domain.Float(5)},
		{TeamID: 2, Raw: domain.Float(15)},
	}

	got := MinMax(values, true)
	if *got[1] != 1.0 || *got[2] != 0.0 {
		t.Errorf("inverted scale wrong: team1=%v team2=%v", *got[1], *got[2])
	}
}

func TestMinMaxOrderIndependent(t *testing.T) {
	forward := []Value{
		{TeamID: 1, Raw: domain.Float(1600)},
		{TeamID: 2, Raw: domain.Float(1480)},
		{TeamID: 3, Raw: domain.Float(1523)},
	}
	reversed := []Value{forward[2], forward[0], forward[1]}

	a := MinMax(forward, false)
	b := MinMax(reversed, false)

	for teamID := int64(1); teamID <= 3; teamID++ {
		if *a[teamID] != *b[teamID] {
			t.Errorf("team %d: order changed result %v vs %v", teamID, *a[teamID], *b[teamID])
		}
	}
}

func TestMinMaxIdempotent(t *testing.T) {
	// Running the normalizer twice over the same snapshot must reproduce the
	// exact doubles.
	values := []Value{
		{TeamID: 1, Raw: domain.Float(1612.37)},
		{TeamID: 2, Raw: domain.Float(1495.11)},
		{TeamID: 3, Raw: domain.Float(1433.98)},
		{TeamID: 4, Raw: nil},
	}

	first := MinMax(values, false)
	second := MinMax(values, false)

	for teamID, n := range first {
		m := second[teamID]
		switch {
		case n == nil && m == nil:
		case n == nil || m == nil:
			t.Errorf("team %d: nullability diverged between runs", teamID)
		case *n != *m:
			t.Errorf("team %d: %v != %v across runs", teamID, *n, *m)
		}
	}
}

func TestMinMaxExactTiesShareValue(t *testing.T) {
	values := []Value{
		{TeamID: 1, Raw: domain.Float(100)},
		{TeamID: 2, Raw: domain.Float(200)},
		{TeamID: 3, Raw: domain.Float(200)},
		{TeamID: 4, Raw: domain.Float(300)},
	}

	got := MinMax(values, false)
	if *got[2] != *got[3] {
		t.Errorf("equal raws must map to equal normalized values: %v vs %v", *got[2], *got[3])
	}
	if *got[2] != 0.5 {
		t.Errorf("tied midpoint = %v, want 0.5", *got[2])
	}
}

func TestRescale(t *testing.T) {
	in := map[int64]*float64{
		1: domain.Float(0.82),
		2: domain.Float(0.60),
		3: domain.Float(0.38),
		4: nil,
	}

	got := Rescale(in)
	if *got[1] != 1.0 || *got[3] != 0.0 {
		t.Errorf("rescale bounds wrong: top=%v bottom=%v", *got[1], *got[3])
	}
	if got[4] != nil {
		t.Error("rescale must preserve nulls")
	}
	mid := *got[2]
	if mid < 0.4999 || mid > 0.5001 {
		t.Errorf("rescale midpoint = %v, want ~0.5", mid)
	}
}
