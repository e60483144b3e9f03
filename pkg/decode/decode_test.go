package decode

import (
	"testing"

	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_PreservesOrderAndTypes(t *testing.T) {
	body := `[
		{"z": "1.5", "a": 2, "time": "2017-09-04T17:51:02.7986986Z", "ok": true, "n": null},
		{"key3": "value3", "nested": {"x": [1, 2]}}
	]`

	batch, err := Batch([]byte(body))
	require.NoError(t, err)
	require.Len(t, batch, 2)

	first := batch[0].Fields
	require.Len(t, first, 5)
	assert.Equal(t, common.RawField{Name: "z", Value: common.StringValue("1.5")}, first[0])
	assert.Equal(t, common.RawField{Name: "a", Value: common.NumberValue("2")}, first[1])
	assert.Equal(t, common.RawTime, first[2].Value.Kind)
	assert.Equal(t, common.BoolValue(true), first[3].Value)
	assert.Equal(t, common.NullValue(), first[4].Value)

	second := batch[1].Fields
	assert.Equal(t, "key3", second[0].Name)
	assert.Equal(t, common.StringValue(`{"x":[1,2]}`), second[1].Value)
}

func TestBatch_SingleObject(t *testing.T) {
	batch, err := Batch([]byte(`{"a": "x"}`))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "a", batch[0].Fields[0].Name)
}

func TestBatch_NoData(t *testing.T) {
	for _, body := range []string{"", "   ", "null"} {
		_, err := Batch([]byte(body))
		assert.ErrorIs(t, err, ErrNoData, "body %q", body)
	}
}

func TestBatch_EmptyArray(t *testing.T) {
	batch, err := Batch([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestBatch_NonObjectElementIsIsolated(t *testing.T) {
	batch, err := Batch([]byte(`[{"a": 1}, 42, {"b": 2}]`))
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.NoError(t, batch[0].Fault)
	assert.ErrorIs(t, batch[1].Fault, ErrNotObject)
	assert.Equal(t, "b", batch[2].Fields[0].Name)
}

func TestBatch_InvalidJSON(t *testing.T) {
	_, err := Batch([]byte(`[{"a": 1},`))
	assert.Error(t, err)

	_, err = Batch([]byte(`"just a string"`))
	assert.Error(t, err)
}

func TestBatch_DateLikeButNotISO(t *testing.T) {
	batch, err := Batch([]byte(`[{"d": "2024-01-01"}]`))
	require.NoError(t, err)
	assert.Equal(t, common.RawString, batch[0].Fields[0].Value.Kind)
}

func TestBatch_TrailingData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"second object", `{"a":1} {"b":2}`},
		{"junk after array", `[{"a":1}] junk`},
		{"second array", `[{"a":1}][{"b":2}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := Batch([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTrailingData)
			assert.Nil(t, batch)
		})
	}
}

func TestBatch_TrailingWhitespaceIsClean(t *testing.T) {
	batch, err := Batch([]byte("[{\"a\":1}]\n\t "))
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}
