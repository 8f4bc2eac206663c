package transit_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busgraph/busgraph/internal/transit"
)

func decodeStop(t *testing.T, body string) transit.RawStopRecord {
	t.Helper()
	var raw transit.RawStopRecord
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestRawStopRecord_UnmarshalJSON(t *testing.T) {
	raw := decodeStop(t, `{
		"$type": "Tfl.Api.Presentation.Entities.StopPoint",
		"id": "490000077E",
		"commonName": "Baker Street",
		"stopLetter": "K",
		"distance": 84.2,
		"indicator": null,
		"lines": [{"name": "13"}, {"name": "N113"}],
		"additionalProperties": [{"key": "Towards", "value": "Marble Arch"}],
		"children": null
	}`)

	assert.Equal(t, "490000077E", raw.ID())
	assert.Equal(t, "Baker Street", raw.Flat["commonName"])
	assert.Equal(t, "K", raw.Flat["stopLetter"])
	assert.NotContains(t, raw.Flat, "distance")
	assert.NotContains(t, raw.Flat, "indicator")
	assert.Equal(t, []transit.RawLine{{Name: "13"}, {Name: "N113"}}, raw.Lines)
	assert.Equal(t, []transit.RawProperty{{Key: "Towards", Value: "Marble Arch"}}, raw.AdditionalProperties)
	assert.Empty(t, raw.Children)
}

func TestRawStopRecord_UnmarshalJSON_NestedChildren(t *testing.T) {
	raw := decodeStop(t, `{
		"id": "HUB1",
		"children": [
			{"id": "A", "children": [{"id": "A1", "stopLetter": "Z"}]},
			{"id": "B"}
		]
	}`)

	require.Len(t, raw.Children, 2)
	assert.Equal(t, "A", raw.Children[0].ID())
	require.Len(t, raw.Children[0].Children, 1)
	assert.Equal(t, "A1", raw.Children[0].Children[0].ID())
	assert.Equal(t, "B", raw.Children[1].ID())
}

func TestRawStopRecord_UnmarshalJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not an object", body: `[1, 2]`},
		{name: "lines wrong shape", body: `{"id": "X", "lines": "13"}`},
		{name: "properties wrong shape", body: `{"id": "X", "additionalProperties": {"key": "k"}}`},
		{name: "children wrong shape", body: `{"id": "X", "children": [1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw transit.RawStopRecord
			assert.Error(t, json.Unmarshal([]byte(tt.body), &raw))
		})
	}
}

func TestResolveProperty(t *testing.T) {
	tests := []struct {
		name   string
		raw    transit.RawStopRecord
		key    string
		want   string
		wantOK bool
	}{
		{
			name:   "flat field",
			raw:    transit.RawStopRecord{Flat: map[string]string{"stopLetter": "K"}},
			key:    "stopLetter",
			want:   "K",
			wantOK: true,
		},
		{
			name: "flat beats additional properties",
			raw: transit.RawStopRecord{
				Flat:                 map[string]string{"Towards": "Flat"},
				AdditionalProperties: []transit.RawProperty{{Key: "Towards", Value: "Prop"}},
			},
			key:    "Towards",
			want:   "Flat",
			wantOK: true,
		},
		{
			name: "additional properties beat children",
			raw: transit.RawStopRecord{
				AdditionalProperties: []transit.RawProperty{{Key: "Towards", Value: "Prop"}},
				Children: []transit.RawStopRecord{
					{Flat: map[string]string{"Towards": "Child"}},
				},
			},
			key:    "Towards",
			want:   "Prop",
			wantOK: true,
		},
		{
			name: "flat wins over every other form at once",
			raw: transit.RawStopRecord{
				Flat:                 map[string]string{"stopLetter": "K"},
				AdditionalProperties: []transit.RawProperty{{Key: "stopLetter", Value: "P"}},
				Children: []transit.RawStopRecord{
					{Flat: map[string]string{"stopLetter": "C"}},
					{AdditionalProperties: []transit.RawProperty{{Key: "stopLetter", Value: "CP"}}},
				},
			},
			key:    "stopLetter",
			want:   "K",
			wantOK: true,
		},
		{
			name: "first matching additional property",
			raw: transit.RawStopRecord{
				AdditionalProperties: []transit.RawProperty{
					{Key: "Zone", Value: "1"},
					{Key: "Direction", Value: "N"},
					{Key: "Direction", Value: "S"},
				},
			},
			key:    "Direction",
			want:   "N",
			wantOK: true,
		},
		{
			name: "first child in order",
			raw: transit.RawStopRecord{
				Children: []transit.RawStopRecord{
					{Flat: map[string]string{"id": "A"}},
					{Flat: map[string]string{"id": "B", "stopLetter": "B1"}},
					{Flat: map[string]string{"id": "C", "stopLetter": "C1"}},
				},
			},
			key:    "stopLetter",
			want:   "B1",
			wantOK: true,
		},
		{
			name: "grandchild reached depth first",
			raw: transit.RawStopRecord{
				Children: []transit.RawStopRecord{
					{Children: []transit.RawStopRecord{
						{AdditionalProperties: []transit.RawProperty{{Key: "Towards", Value: "Deep"}}},
					}},
					{Flat: map[string]string{"Towards": "Shallow"}},
				},
			},
			key:    "Towards",
			want:   "Deep",
			wantOK: true,
		},
		{
			name:   "empty string is a value",
			raw:    transit.RawStopRecord{Flat: map[string]string{"stopLetter": ""}},
			key:    "stopLetter",
			want:   "",
			wantOK: true,
		},
		{
			name:   "absent everywhere",
			raw:    transit.RawStopRecord{Flat: map[string]string{"id": "X"}},
			key:    "stopLetter",
			wantOK: false,
		},
		{
			name:   "zero record",
			raw:    transit.RawStopRecord{},
			key:    "Towards",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := transit.ResolveProperty(tt.raw, tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_BakerStreet(t *testing.T) {
	raw := decodeStop(t, `{
		"id": "490000077E",
		"commonName": "Baker Street",
		"stopLetter": "K",
		"lines": [{"name": "13"}, {"name": "N113"}],
		"additionalProperties": [
			{"key": "Towards", "value": "Marble Arch"},
			{"key": "Direction", "value": "S"}
		]
	}`)

	stop, err := transit.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "490000077E", stop.ID)
	assert.Equal(t, "Baker Street", stop.CommonName)
	assert.Equal(t, []string{"13", "N113"}, stop.Buses)
	require.NotNil(t, stop.StopLetter)
	assert.Equal(t, "K", *stop.StopLetter)
	require.NotNil(t, stop.Towards)
	assert.Equal(t, "Marble Arch", *stop.Towards)
	require.NotNil(t, stop.Direction)
	assert.Equal(t, "S", *stop.Direction)
}

func TestNormalize_OptionalAttributesAbsent(t *testing.T) {
	raw := transit.RawStopRecord{
		Flat: map[string]string{"id": "940GZZLUBST", "commonName": "Baker Street Underground Station"},
	}

	stop, err := transit.Normalize(raw)
	require.NoError(t, err)

	assert.Nil(t, stop.StopLetter)
	assert.Nil(t, stop.Towards)
	assert.Nil(t, stop.Direction)
	assert.NotNil(t, stop.Buses)
	assert.Empty(t, stop.Buses)
}

func TestNormalize_AttributesFromChildren(t *testing.T) {
	raw := transit.RawStopRecord{
		Flat: map[string]string{"id": "490G00077E", "commonName": "Baker Street"},
		Children: []transit.RawStopRecord{
			{
				Flat:                 map[string]string{"id": "490000077E", "stopLetter": "K"},
				AdditionalProperties: []transit.RawProperty{{Key: "Towards", Value: "Marble Arch"}},
			},
		},
	}

	stop, err := transit.Normalize(raw)
	require.NoError(t, err)

	require.NotNil(t, stop.StopLetter)
	assert.Equal(t, "K", *stop.StopLetter)
	require.NotNil(t, stop.Towards)
	assert.Equal(t, "Marble Arch", *stop.Towards)
	assert.Nil(t, stop.Direction)
}

func TestNormalize_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name  string
		flat  map[string]string
		field string
	}{
		{name: "no id", flat: map[string]string{"commonName": "Baker Street"}, field: "id"},
		{name: "empty id", flat: map[string]string{"id": "", "commonName": "Baker Street"}, field: "id"},
		{name: "no common name", flat: map[string]string{"id": "490000077E"}, field: "commonName"},
		{name: "nil flat", flat: nil, field: "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stop, err := transit.Normalize(transit.RawStopRecord{Flat: tt.flat})
			require.Error(t, err)
			assert.Nil(t, stop)
			assert.ErrorIs(t, err, transit.ErrMissingRequiredField)

			var fieldErr *transit.MissingFieldError
			require.True(t, errors.As(err, &fieldErr))
			assert.Equal(t, tt.field, fieldErr.Field)
		})
	}
}

func TestSelectStop(t *testing.T) {
	hub := decodeStop(t, `{
		"id": "X",
		"commonName": "Hub",
		"children": [
			{"id": "A", "commonName": "Stop A", "stopLetter": "A"},
			{"id": "B", "commonName": "Stop B", "stopLetter": "B",
			 "children": [{"id": "B2", "commonName": "Stop B2"}]}
		]
	}`)

	t.Run("top level", func(t *testing.T) {
		got, err := transit.SelectStop(hub, "X")
		require.NoError(t, err)
		assert.Equal(t, "Hub", got.Flat["commonName"])
	})

	t.Run("child", func(t *testing.T) {
		got, err := transit.SelectStop(hub, "B")
		require.NoError(t, err)

		stop, err := transit.Normalize(got)
		require.NoError(t, err)
		assert.Equal(t, "B", stop.ID)
		assert.Equal(t, "Stop B", stop.CommonName)
		require.NotNil(t, stop.StopLetter)
		assert.Equal(t, "B", *stop.StopLetter)
	})

	t.Run("grandchild", func(t *testing.T) {
		got, err := transit.SelectStop(hub, "B2")
		require.NoError(t, err)
		assert.Equal(t, "B2", got.ID())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := transit.SelectStop(hub, "C")
		require.Error(t, err)
		assert.ErrorIs(t, err, transit.ErrStopNotFound)
		assert.Contains(t, err.Error(), "C")
	})
}

func TestNormalize_FlatStopLetterWinsOverAllForms(t *testing.T) {
	raw := decodeStop(t, `{
		"id": "490000077E",
		"commonName": "Baker Street",
		"stopLetter": "K",
		"additionalProperties": [{"key": "stopLetter", "value": "P"}],
		"children": [
			{"id": "490000077E1", "stopLetter": "C"},
			{"id": "490000077E2", "additionalProperties": [{"key": "stopLetter", "value": "CP"}]}
		]
	}`)

	stop, err := transit.Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, stop.StopLetter)
	assert.Equal(t, "K", *stop.StopLetter)
}
