package predict_test

import (
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/predict"
	"github.com/lookbusy1344/zpaqgo/internal/zpaql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictor_ConstComponentPredictsFixedProbability(t *testing.T) {
	h := &predict.Header{Comps: []predict.Comp{
		{Type: predict.Const, Params: []byte{128}}, // c=128 -> p=(128-128)*4=0
	}}
	z := zpaql.New(nil, 0, 0)
	pr, err := predict.New(h, z)
	require.NoError(t, err)

	got := pr.Predict()
	tabs := predict.SharedTables()
	assert.Equal(t, tabs.Squash0(0), got)
}

func TestPredictor_CMStartsNearMidpointAndMovesTowardObservedBit(t *testing.T) {
	h := &predict.Header{Comps: []predict.Comp{
		{Type: predict.CM, Params: []byte{4, 255}}, // sizebits=4, limit*4
	}}
	z := zpaql.New(nil, 0, 0)
	pr, err := predict.New(h, z)
	require.NoError(t, err)

	first := pr.Predict()
	assert.InDelta(t, 16384, first, 64)

	for i := 0; i < 200; i++ {
		pr.Predict()
		require.NoError(t, pr.Update(1))
	}
	trained := pr.Predict()
	assert.Greater(t, trained, first)
}

func TestPredictor_RejectsUnknownComponentType(t *testing.T) {
	h := &predict.Header{Comps: []predict.Comp{
		{Type: predict.CompType(200), Params: nil},
	}}
	z := zpaql.New(nil, 0, 0)
	_, err := predict.New(h, z)
	assert.Error(t, err)
}

func TestPredictor_ISSEChainsOffICM(t *testing.T) {
	h := &predict.Header{Comps: []predict.Comp{
		{Type: predict.ICM, Params: []byte{4}},
		{Type: predict.ISSE, Params: []byte{4, 0}},
	}}
	z := zpaql.New(nil, 4, 0)
	pr, err := predict.New(h, z)
	require.NoError(t, err)

	p := pr.Predict()
	assert.GreaterOrEqual(t, p, int32(0))
	assert.Less(t, p, int32(32768))
	require.NoError(t, pr.Update(1))
}
