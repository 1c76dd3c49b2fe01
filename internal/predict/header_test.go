package predict_test

import (
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/predict"
	"github.com/stretchr/testify/assert"
)

func TestHeader_Validate_RejectsEmptyComponentList(t *testing.T) {
	h := &predict.Header{}
	assert.Error(t, h.Validate())
}

func TestHeader_Validate_RejectsWrongParamCount(t *testing.T) {
	h := &predict.Header{Comps: []predict.Comp{
		{Type: predict.CM, Params: []byte{1}}, // CM wants 2 params
	}}
	assert.Error(t, h.Validate())
}

func TestHeader_Validate_RejectsForwardReference(t *testing.T) {
	h := &predict.Header{Comps: []predict.Comp{
		{Type: predict.ISSE, Params: []byte{8, 1}}, // component 0 references component 1
		{Type: predict.ICM, Params: []byte{8}},
	}}
	assert.Error(t, h.Validate())
}

func TestHeader_Validate_AcceptsSimpleConstComponent(t *testing.T) {
	h := &predict.Header{Comps: []predict.Comp{
		{Type: predict.Const, Params: []byte{128}},
	}}
	assert.NoError(t, h.Validate())
}

func TestHeader_Memory_CountsArraysAndComponentTables(t *testing.T) {
	h := &predict.Header{
		HH: 2, HM: 3,
		Comps: []predict.Comp{
			{Type: predict.CM, Params: []byte{10, 20}},
		},
	}
	// H 2^(2+2), M 2^3, PCOMP H 2^2 and M 2^0, CM table 4*2^10.
	assert.Equal(t, float64(16+8+4+1+4096), h.Memory())
}

func TestHeader_Validate_AcceptsChainedComponents(t *testing.T) {
	h := &predict.Header{Comps: []predict.Comp{
		{Type: predict.ICM, Params: []byte{16}},
		{Type: predict.ISSE, Params: []byte{16, 0}},
	}}
	assert.NoError(t, h.Validate())
}
