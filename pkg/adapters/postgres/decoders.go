package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Extremes substituted for infinite dates and timestamps.
var (
	MaxDate      = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
	MinDate      = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxTimestamp = time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC)
	MinTimestamp = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Decoder rewrites a scanned value of one column type.
type Decoder func(v any) any

// DecoderTable maps type OIDs to decoders. It belongs to a single
// connection; there is no process-wide registration.
type DecoderTable map[uint32]Decoder

// InfinityDecoders maps infinity and -infinity on date, timestamp and
// timestamptz columns to the largest and smallest representable values.
func InfinityDecoders() DecoderTable {
	return DecoderTable{
		pgtype.DateOID:        infinityDecoder(MinDate, MaxDate),
		pgtype.TimestampOID:   infinityDecoder(MinTimestamp, MaxTimestamp),
		pgtype.TimestamptzOID: infinityDecoder(MinTimestamp, MaxTimestamp),
	}
}

func infinityDecoder(lo, hi time.Time) Decoder {
	return func(v any) any {
		switch x := v.(type) {
		case string:
			switch x {
			case "infinity":
				return hi
			case "-infinity":
				return lo
			}
		case pgtype.InfinityModifier:
			switch x {
			case pgtype.Infinity:
				return hi
			case pgtype.NegativeInfinity:
				return lo
			case pgtype.Finite:
			}
		}
		return v
	}
}

// Decode applies the decoder registered for oid, if any.
func (t DecoderTable) Decode(oid uint32, v any) any {
	if v == nil {
		return nil
	}
	if dec, ok := t[oid]; ok {
		return dec(v)
	}
	return v
}
