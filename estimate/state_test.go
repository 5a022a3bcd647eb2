package estimate

import (
	"errors"
	"testing"

	kalman "github.com/sdia/kalman"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

type initCond struct {
	x *mat.VecDense
	p *mat.SymDense
}

func (c initCond) State() mat.Vector  { return c.x }
func (c initCond) Cov() mat.Symmetric { return c.p }

func TestNew(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1.0, 1.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	s, err := New(val, cov)
	assert.NotNil(s)
	assert.NoError(err)
	assert.Equal(2, s.Len())

	s, err = New(val, mat.NewSymDense(1, []float64{1.0}))
	assert.Nil(s)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))

	s, err = New(nil, cov)
	assert.Nil(s)
	assert.Error(err)
}

func TestValCovAreCopies(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 2.0, 2.0, 4.0})

	s, err := New(val, cov)
	assert.NoError(err)

	// mutating the inputs must not change the estimate
	val.SetVec(0, 100.0)
	cov.SetSym(0, 0, 100.0)
	assert.Equal(1.0, s.Val().AtVec(0))
	assert.Equal(1.0, s.Cov().At(0, 0))

	// mutating the returned values must not change the estimate either
	v := s.Val().(*mat.VecDense)
	v.SetVec(1, -1.0)
	assert.Equal(2.0, s.Val().AtVec(1))

	assert.InDelta(5.0, s.Trace(), 1e-12)
}

func TestFromInitCond(t *testing.T) {
	assert := assert.New(t)

	ic := initCond{
		x: mat.NewVecDense(2, []float64{1.0, 3.0}),
		p: mat.NewSymDense(2, []float64{0.25, 0, 0, 0.25}),
	}

	s, err := FromInitCond(ic)
	assert.NoError(err)
	assert.True(mat.Equal(ic.x, s.Val()))
	assert.True(mat.Equal(ic.p, s.Cov()))
}

func TestString(t *testing.T) {
	assert := assert.New(t)

	s, err := New(mat.NewVecDense(2, []float64{1, 2}), mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	assert.NoError(err)
	assert.Contains(s.String(), "State{")
}
