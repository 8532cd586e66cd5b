package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortTypeLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"integer", "#"},
		{"INTEGER", "#"},
		{"bigint", "##"},
		{"character varying(10)", "s"},
		{"character varying", "s"},
		{"double precision", "#.#"},
		{"numeric(10,2)", "#.#"},
		{"timestamp without time zone", "ts"},
		{"timestamp(3) with time zone", "ts"},
		{"time with time zone", "t"},
		{"jsonb", "b{}"},
		{"ARRAY", "[]"},
		{"integer[]", "[]"},
		{"bit varying(5)", "010"},
		{"uuid", "uid"},
		{"USER-DEFINED", "?"},
		{"my_enum", "?"},
		{"", "?"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShortTypeLabel(tt.input))
		})
	}
}

func TestShortTypeLabelForOID(t *testing.T) {
	tests := []struct {
		oid      uint32
		expected string
	}{
		{pgtype.BoolOID, "t/f"},
		{pgtype.Int4OID, "#"},
		{pgtype.Int8OID, "##"},
		{pgtype.TextOID, "s"},
		{pgtype.VarcharOID, "s"},
		{pgtype.TimestamptzOID, "ts"},
		{pgtype.DateArrayOID, "[d]"},
		{pgtype.JSONBOID, "b{}"},
		{1266, "t"},
		{0, "?"},
		{999999, "?"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShortTypeLabelForOID(tt.oid))
		})
	}
}

func TestInfinityDecoders(t *testing.T) {
	table := InfinityDecoders()
	now := time.Now()

	tests := []struct {
		name     string
		oid      uint32
		input    any
		expected any
	}{
		{"date infinity", pgtype.DateOID, "infinity", MaxDate},
		{"date -infinity", pgtype.DateOID, "-infinity", MinDate},
		{"timestamp infinity", pgtype.TimestampOID, "infinity", MaxTimestamp},
		{"timestamptz -infinity", pgtype.TimestamptzOID, "-infinity", MinTimestamp},
		{"modifier", pgtype.TimestampOID, pgtype.Infinity, MaxTimestamp},
		{"finite passes through", pgtype.DateOID, now, now},
		{"other column untouched", pgtype.TextOID, "infinity", "infinity"},
		{"null", pgtype.DateOID, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, table.Decode(tt.oid, tt.input))
		})
	}

	var none DecoderTable
	assert.Equal(t, "infinity", none.Decode(pgtype.DateOID, "infinity"))
}

func TestParseKeywords(t *testing.T) {
	kws, err := keywordCompletions()
	require.NoError(t, err)
	require.NotEmpty(t, kws)

	byLabel := make(map[string]int)
	for _, k := range kws {
		assert.Equal(t, "kw", k.TypeLabel)
		assert.Equal(t, k.Label, k.Value)
		byLabel[k.Label] = k.Priority
	}
	assert.Equal(t, 100, byLabel["select"])
	assert.Equal(t, 100, byLabel["authorization"], "reserved (can be function or type)")
	assert.Equal(t, 1000, byLabel["atomic"])
	assert.Equal(t, 1000, byLabel["greatest"])
	assert.NotContains(t, byLabel, "key word")
}

func TestParseKeywords_Malformed(t *testing.T) {
	_, err := parseKeywords("Key Word\tPostgreSQL\nSELECT\treserved\n")
	require.Error(t, err)
}
