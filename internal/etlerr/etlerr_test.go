package etlerr

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Nil(t *testing.T) {
	assert.NoError(t, New(SourceUnavailable, "resolve", nil))
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := eris.Wrap(New(StoreWriteFailure, "load ratings", base), "pipeline: run")

	assert.Equal(t, StoreWriteFailure, KindOf(err))
	assert.Equal(t, "load ratings", StageOf(err))
	assert.True(t, Is(err, StoreWriteFailure))
	assert.False(t, Is(err, SourceUnavailable))
	assert.ErrorIs(t, err, base)
}

func TestKindOf_Unknown(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, "", StageOf(errors.New("plain")))
	assert.False(t, Is(nil, Unknown))
}

func TestError_Message(t *testing.T) {
	err := New(TypeCoercionFailure, "load catalog", errors.New("budget: bad value"))
	require.Error(t, err)
	assert.Equal(t, "load catalog: TypeCoercionFailure: budget: bad value", err.Error())
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		Unknown:             "Unknown",
		SourceUnavailable:   "SourceUnavailable",
		UnparseableValue:    "UnparseableValue",
		TypeCoercionFailure: "TypeCoercionFailure",
		MergeInconsistency:  "MergeInconsistency",
		StoreWriteFailure:   "StoreWriteFailure",
	}
	for k, want := range tests {
		assert.Equal(t, want, k.String())
	}
}

func TestKind_MarshalText(t *testing.T) {
	data, err := json.Marshal(struct {
		Kind Kind `json:"kind"`
	}{MergeInconsistency})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"MergeInconsistency"}`, string(data))
}
