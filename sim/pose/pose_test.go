package pose

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsIdentity(t *testing.T) {
	p := New()
	assert.Equal(t, mgl64.Vec3{}, p.Position())
	assert.Equal(t, mgl64.QuatIdent(), p.Orientation())
}

func TestRenormalizeDegenerate(t *testing.T) {
	_, err := Renormalize(mgl64.Quat{})
	assert.ErrorIs(t, err, ErrDegenerateOrientation)

	_, err = Renormalize(mgl64.Quat{W: math.NaN()})
	assert.ErrorIs(t, err, ErrDegenerateOrientation)
}

func TestRenormalizeIsIdempotent(t *testing.T) {
	q, err := Renormalize(mgl64.Quat{W: 2, V: mgl64.Vec3{1, -3, 0.5}})
	require.NoError(t, err)
	assert.InDelta(t, 1, q.Len(), 1e-12)

	q2, err := Renormalize(q)
	require.NoError(t, err)
	assertQuatNear(t, q2, q)
}

func TestAxisAngle(t *testing.T) {
	t.Run("normalizes axis", func(t *testing.T) {
		q, err := AxisAngle(mgl64.Vec3{0, 0, 5}, math.Pi/2)
		require.NoError(t, err)
		assert.True(t, IsUnit(q))
		v := Matrix3(q).Mul3x1(mgl64.Vec3{1, 0, 0})
		assertVecNear(t, mgl64.Vec3{0, 1, 0}, v, "got %v", v)
	})
	t.Run("zero axis", func(t *testing.T) {
		_, err := AxisAngle(mgl64.Vec3{}, 1)
		assert.ErrorIs(t, err, ErrInvalidAxis)
	})
}

func TestComposeTwoQuarterTurnsAboutZ(t *testing.T) {
	quarter, err := AxisAngle(mgl64.Vec3{0, 0, 1}, math.Pi/2)
	require.NoError(t, err)

	q, err := Compose(quarter, Identity())
	require.NoError(t, err)
	q, err = Compose(quarter, q)
	require.NoError(t, err)

	got := Matrix3(q).Mul3x1(mgl64.Vec3{1, 0, 0})
	assertVecNear(t, mgl64.Vec3{-1, 0, 0}, got, "got %v", got)
	got = Matrix3(q).Mul3x1(mgl64.Vec3{0, 1, 0})
	assertVecNear(t, mgl64.Vec3{0, -1, 0}, got, "got %v", got)
}

func TestComposeAppliesDeltaInWorldFrame(t *testing.T) {
	// Base: 90 degrees about X. Delta: 90 degrees about world Z.
	base, err := AxisAngle(mgl64.Vec3{1, 0, 0}, math.Pi/2)
	require.NoError(t, err)
	delta, err := AxisAngle(mgl64.Vec3{0, 0, 1}, math.Pi/2)
	require.NoError(t, err)

	q, err := Compose(delta, base)
	require.NoError(t, err)

	// Local Y goes to world Z under base, and stays on Z under a world-Z rotation.
	got := Matrix3(q).Mul3x1(mgl64.Vec3{0, 1, 0})
	assertVecNear(t, mgl64.Vec3{0, 0, 1}, got, "got %v", got)
}

func TestUnitNormAfterManyDeltas(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := New()
	for i := 0; i < 100_000; i++ {
		d := Delta{
			Translation: mgl64.Vec3{rng.NormFloat64() * 0.01, 0, 0},
			Rotation:    EulerZYX(rng.NormFloat64()*0.03, rng.NormFloat64()*0.03, rng.NormFloat64()*0.03),
		}
		var err error
		p, err = p.Apply(d)
		require.NoError(t, err)
		if !IsUnit(p.Orientation()) {
			t.Fatalf("step %d: |q| = %.12f, want 1 ± %g", i, p.Orientation().Len(), UnitTolerance)
		}
	}
}

func TestApplyUnnormalizedDelta(t *testing.T) {
	p, err := New().Apply(Delta{
		Translation: mgl64.Vec3{1, 2, 3},
		Rotation:    mgl64.Quat{W: 1, V: mgl64.Vec3{0.03, 0, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, p.Position())
	assert.True(t, IsUnit(p.Orientation()))
}

func TestApplyDegenerateDeltaKeepsPose(t *testing.T) {
	start := At(mgl64.Vec3{1, 1, 1})
	p, err := start.Apply(Delta{Translation: mgl64.Vec3{5, 0, 0}})
	assert.ErrorIs(t, err, ErrDegenerateOrientation)
	assert.Equal(t, start, p)
}

func TestEulerZYXOrder(t *testing.T) {
	q := EulerZYX(math.Pi/2, 0, math.Pi/2)
	// qz * qx: X applied to the vector first, then Z.
	got := Matrix3(q).Mul3x1(mgl64.Vec3{0, 1, 0})
	assertVecNear(t, mgl64.Vec3{0, 0, 1}, got, "got %v", got)
	assert.True(t, IsUnit(q))
}

func TestMatrix4Translation(t *testing.T) {
	p, err := FromParts(mgl64.Vec3{1, 2, 3}, mgl64.Quat{W: 2})
	require.NoError(t, err)
	got := p.Matrix4().Mul4x1(mgl64.Vec4{0, 0, 0, 1})
	assert.Equal(t, mgl64.Vec4{1, 2, 3, 1}, got)
	assert.Equal(t, []float64{1, 2, 3, 1, 0, 0, 0}, p.Slice())
}

func assertVecNear(t *testing.T, want, got mgl64.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, 0, got.Sub(want).Len(), 1e-9, msgAndArgs...)
}

// assertQuatNear compares rotations, so q and -q are equal.
func assertQuatNear(t *testing.T, want, got mgl64.Quat, msgAndArgs ...any) {
	t.Helper()
	if want.Dot(got) < 0 {
		got = got.Scale(-1)
	}
	d := mgl64.Vec4{got.W - want.W, got.V[0] - want.V[0], got.V[1] - want.V[1], got.V[2] - want.V[2]}
	assert.InDelta(t, 0, d.Len(), 1e-9, msgAndArgs...)
}
