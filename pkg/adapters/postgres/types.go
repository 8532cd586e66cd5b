package postgres

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

const unknownTypeLabel = "?"

// typeLabelsByName maps the leading word of a catalog type name to its glyph.
var typeLabelsByName = map[string]string{
	"array":         "[]",
	"bigint":        "##",
	"bigserial":     "##",
	"bit":           "010",
	"boolean":       "t/f",
	"box":           "□",
	"bytea":         "b",
	"character":     "s",
	"cidr":          "ip",
	"circle":        "○",
	"date":          "d",
	"double":        "#.#",
	"inet":          "ip",
	"integer":       "#",
	"interval":      "|-|",
	"json":          "{}",
	"jsonb":         "b{}",
	"line":          "—",
	"lseg":          "-",
	"macaddr":       "mac",
	"macaddr8":      "mac",
	"money":         "$$",
	"numeric":       "#.#",
	"oid":           "oid",
	"path":          "╭",
	"pg_lsn":        "lsn",
	"pg_snapshot":   "snp",
	"point":         "•",
	"polygon":       "▽",
	"real":          "#.#",
	"serial":        "#",
	"smallint":      "#",
	"smallserial":   "#",
	"text":          "s",
	"time":          "t",
	"timestamp":     "ts",
	"tsquery":       "tsq",
	"tsvector":      "tsv",
	"txid_snapshot": "snp",
	"uuid":          "uid",
	"xml":           "xml",
}

// typeLabelsByOID maps result-column type OIDs to their glyph. Array types
// wrap the element glyph in brackets.
var typeLabelsByOID = map[uint32]string{
	pgtype.BoolOID:             "t/f",
	pgtype.ByteaOID:            "b",
	pgtype.QCharOID:            "s",
	pgtype.NameOID:             "s",
	pgtype.Int8OID:             "##",
	pgtype.Int2OID:             "#",
	22:                         "[#]", // int2vector
	pgtype.Int4OID:             "#",
	pgtype.TextOID:             "s",
	pgtype.OIDOID:              "oid",
	pgtype.JSONOID:             "{}",
	pgtype.XMLOID:              "xml",
	pgtype.PointOID:            "•",
	pgtype.LsegOID:             "-",
	pgtype.PathOID:             "╭",
	pgtype.BoxOID:              "□",
	pgtype.PolygonOID:          "▽",
	pgtype.LineOID:             "—",
	pgtype.CIDRArrayOID:        "[ip]",
	pgtype.Float4OID:           "#.#",
	pgtype.Float8OID:           "#.#",
	704:                        "|-|", // tinterval
	pgtype.CircleOID:           "○",
	790:                        "$$", // money
	pgtype.MacaddrOID:          "mac",
	pgtype.InetOID:             "ip",
	pgtype.CIDROID:             "ip",
	774:                        "mac", // macaddr8
	pgtype.BoolArrayOID:        "[t/f]",
	pgtype.ByteaArrayOID:       "[b]",
	pgtype.QCharArrayOID:       "[s]",
	pgtype.NameArrayOID:        "[s]",
	pgtype.TextArrayOID:        "[s]",
	1013:                       "[oid]", // oidvector[]
	pgtype.BPCharArrayOID:      "[s]",
	pgtype.VarcharArrayOID:     "[s]",
	pgtype.Int8ArrayOID:        "[#]",
	pgtype.Float4ArrayOID:      "[#.#]",
	pgtype.Float8ArrayOID:      "[#.#]",
	pgtype.OIDArrayOID:         "[oid]",
	1040:                       "[mac]", // macaddr[]
	pgtype.InetArrayOID:        "[ip]",
	pgtype.BPCharOID:           "s",
	pgtype.VarcharOID:          "s",
	pgtype.DateOID:             "d",
	pgtype.TimeOID:             "t",
	pgtype.TimestampOID:        "ts",
	pgtype.TimestampArrayOID:   "[ts]",
	pgtype.DateArrayOID:        "[d]",
	pgtype.TimeArrayOID:        "[t]",
	pgtype.TimestamptzOID:      "ts",
	pgtype.TimestamptzArrayOID: "[ts]",
	pgtype.IntervalOID:         "|-|",
	pgtype.IntervalArrayOID:    "[|-|]",
	pgtype.NumericArrayOID:     "[#.#]",
	1266:                       "t",   // timetz
	1270:                       "[t]", // timetz[]
	pgtype.BitOID:              "010",
	pgtype.VarbitOID:           "010",
	pgtype.NumericOID:          "#.#",
	pgtype.UUIDOID:             "uid",
	3614:                       "tsv", // tsvector
	3615:                       "tsq", // tsquery
	pgtype.JSONBOID:            "b{}",
}

// ShortTypeLabel maps a catalog type name such as "character varying(10)"
// or "timestamp without time zone" to its glyph.
func ShortTypeLabel(typeName string) string {
	name := strings.ToLower(strings.TrimSpace(typeName))
	if strings.HasSuffix(name, "[]") {
		return typeLabelsByName["array"]
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	if label, ok := typeLabelsByName[name]; ok {
		return label
	}
	return unknownTypeLabel
}

// ShortTypeLabelForOID maps a result-column type OID to its glyph.
func ShortTypeLabelForOID(oid uint32) string {
	if label, ok := typeLabelsByOID[oid]; ok {
		return label
	}
	return unknownTypeLabel
}

// columnOID recovers the type OID of a result column. The pgx stdlib driver
// reports the upper-cased pgtype name when it knows the type and the bare
// OID otherwise.
func columnOID(types *pgtype.Map, ct *sql.ColumnType) uint32 {
	name := ct.DatabaseTypeName()
	if oid, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uint32(oid)
	}
	if t, ok := types.TypeForName(strings.ToLower(name)); ok {
		return t.OID
	}
	return 0
}
