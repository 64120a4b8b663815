package inflate

import (
	"errors"
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/mash/pkg/assemble"
	"github.com/chazu/mash/pkg/triangulate"
)

// square triangulates a 10×10 square and returns it with its boundary ids.
func square(t *testing.T) ([]r3.Vec, [][3]int, []int) {
	t.Helper()
	var loop []r2.Vec
	for i := 0; i < 10; i++ {
		loop = append(loop, r2.Vec{X: float64(i), Y: 0})
	}
	for i := 0; i < 10; i++ {
		loop = append(loop, r2.Vec{X: 10, Y: float64(i)})
	}
	for i := 0; i < 10; i++ {
		loop = append(loop, r2.Vec{X: float64(10 - i), Y: 10})
	}
	for i := 0; i < 10; i++ {
		loop = append(loop, r2.Vec{X: 0, Y: float64(10 - i)})
	}
	m, err := triangulate.Triangulate(triangulate.Input{Loops: [][]r2.Vec{loop}}, "pqa2Q")
	if err != nil {
		t.Fatalf("Triangulate: %v", err)
	}
	v := make([]r3.Vec, len(m.V))
	for i, p := range m.V {
		v[i] = r3.Vec{X: p.X, Y: p.Y}
	}
	bnd := make([]int, len(loop))
	for i := range bnd {
		bnd[i] = i
	}
	return v, m.F, bnd
}

func filled(n int, a float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = a
	}
	return out
}

func TestInflateSquare(t *testing.T) {
	v, f, bnd := square(t)
	ops, err := NewOperators(v, f)
	if err != nil {
		t.Fatalf("NewOperators: %v", err)
	}
	isBnd := make([]bool, len(v))
	for _, i := range bnd {
		isBnd[i] = true
	}

	tests := []struct {
		name   string
		amount float64
	}{
		{"front", 2},
		{"back", -2},
	}
	var front []float64
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := Inflate(ops, bnd, filled(len(v), tt.amount))
			if err != nil {
				t.Fatalf("Inflate: %v", err)
			}
			for i, h := range z {
				switch {
				case isBnd[i] && h != 0:
					t.Errorf("boundary vertex %d has z = %g, want 0", i, h)
				case !isBnd[i] && tt.amount > 0 && h <= 0:
					t.Errorf("interior vertex %d has z = %g, want > 0", i, h)
				case !isBnd[i] && tt.amount < 0 && h >= 0:
					t.Errorf("interior vertex %d has z = %g, want < 0", i, h)
				}
			}
			if front == nil {
				front = z
				return
			}
			for i := range z {
				if math.Abs(z[i]+front[i]) > 1e-9 {
					t.Fatalf("vertex %d: back z = %g, front z = %g", i, z[i], front[i])
				}
			}
		})
	}
}

func TestInflateSquareRootShaping(t *testing.T) {
	v, f, bnd := square(t)
	ops, err := NewOperators(v, f)
	if err != nil {
		t.Fatalf("NewOperators: %v", err)
	}
	z1, err := Inflate(ops, bnd, filled(len(v), 1))
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	z4, err := Inflate(ops, bnd, filled(len(v), 4))
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	// Four times the amount doubles the height.
	for i := range z1 {
		if math.Abs(z4[i]-2*z1[i]) > 1e-9 {
			t.Fatalf("vertex %d: z(4) = %g, want %g", i, z4[i], 2*z1[i])
		}
	}
}

func TestNonManifold(t *testing.T) {
	v, f, _ := square(t)
	v = append(v, r3.Vec{X: 50, Y: 50})
	_, err := NewOperators(v, f)
	if !errors.Is(err, ErrNonManifold) {
		t.Fatalf("NewOperators error = %v, want ErrNonManifold", err)
	}
}

func TestUnanchored(t *testing.T) {
	v, f, bnd := square(t)
	n := len(v)
	v = append(v, r3.Vec{X: 20, Y: 0}, r3.Vec{X: 21, Y: 0}, r3.Vec{X: 20, Y: 1})
	f = append(f, [3]int{n, n + 1, n + 2})

	if got := Unanchored(f, bnd); !slices.Equal(got, []int{n}) {
		t.Errorf("Unanchored = %v, want [%d]", got, n)
	}
	if got := Unanchored(f, append(bnd, n+1)); len(got) != 0 {
		t.Errorf("Unanchored with the island pinned = %v, want none", got)
	}

	ops, err := NewOperators(v, f)
	if err != nil {
		t.Fatalf("NewOperators: %v", err)
	}
	_, err = Inflate(ops, bnd, filled(len(v), 1))
	if !errors.Is(err, ErrUnanchored) {
		t.Errorf("Inflate error = %v, want ErrUnanchored", err)
	}
}

func TestInflateAmountLength(t *testing.T) {
	v, f, bnd := square(t)
	ops, err := NewOperators(v, f)
	if err != nil {
		t.Fatalf("NewOperators: %v", err)
	}
	if _, err := Inflate(ops, bnd, []float64{1}); err == nil {
		t.Error("Inflate with short amount succeeded")
	}
}

func TestStitch(t *testing.T) {
	v, f, bnd := square(t)
	ops, err := NewOperators(v, f)
	if err != nil {
		t.Fatalf("NewOperators: %v", err)
	}
	z, err := Inflate(ops, bnd, filled(len(v), 2))
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}

	t.Run("no pairs", func(t *testing.T) {
		out, err := Stitch(ops, z, bnd, nil)
		if err != nil {
			t.Fatalf("Stitch: %v", err)
		}
		for i := range z {
			if math.Abs(out[i]-z[i]) > 1e-6 {
				t.Fatalf("vertex %d moved from %g to %g", i, z[i], out[i])
			}
		}
	})

	t.Run("pairs", func(t *testing.T) {
		// Pair the highest interior vertex with a boundary neighbour.
		top := 0
		for i := range z {
			if z[i] > z[top] {
				top = i
			}
		}
		pairs := []assemble.Armpit{{First: top, Second: 0, Sign: 1}, {First: 5, Second: 15, Sign: -1}}
		out, err := Stitch(ops, z, bnd, pairs)
		if err != nil {
			t.Fatalf("Stitch: %v", err)
		}
		for _, p := range pairs {
			if d := out[p.First] - out[p.Second]; math.Abs(d) > 1e-8 {
				t.Errorf("pair %v differs by %g", p, d)
			}
		}
	})
}
