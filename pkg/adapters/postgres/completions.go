package postgres

import (
	"cmp"
	"context"
	"database/sql"
	_ "embed"
	"encoding/csv"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
)

// Completion priorities; lower sorts first.
const (
	priorityReservedKeyword = 100
	priorityKeyword         = 1000
	priorityRoutine         = 1000
	prioritySetting         = 2000
)

// Key words from the PostgreSQL documentation's SQL key words appendix.
// Columns: key word, PostgreSQL category, SQL:2023, SQL:2016, SQL-92.
//
//go:embed keywords.tsv
var keywordsTSV string

const routinesQuery = `
select distinct
    routine_name,
    case when routine_type is null then 'agg' else 'fn' end,
    case when routine_schema = 'pg_catalog' then null else routine_schema end
from information_schema.routines
where
    length(routine_name) < 37
    and routine_name not ilike '\_%'
    and routine_name not ilike 'pg\_%'
    and routine_name not ilike 'binary\_upgrade\_%'`

const settingsQuery = `select distinct name from pg_settings`

var keywordCompletions = sync.OnceValues(func() ([]adapter.Completion, error) {
	return parseKeywords(keywordsTSV)
})

func parseKeywords(tsv string) ([]adapter.Completion, error) {
	r := csv.NewReader(strings.NewReader(tsv))
	r.Comma = '\t'
	r.FieldsPerRecord = 5
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword list: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]adapter.Completion, 0, len(records)-1)
	for _, rec := range records[1:] {
		kw := strings.ToLower(rec[0])
		priority := priorityKeyword
		if strings.HasPrefix(rec[1], "reserved") {
			priority = priorityReservedKeyword
		}
		out = append(out, adapter.Completion{
			Label:     kw,
			TypeLabel: "kw",
			Value:     kw,
			Priority:  priority,
		})
	}
	return out, nil
}

// completions gathers keywords, routines and run-time settings using conn.
func completions(ctx context.Context, conn *sql.Conn) ([]adapter.Completion, error) {
	kws, err := keywordCompletions()
	if err != nil {
		return nil, err
	}
	out := slices.Clone(kws)

	routines, err := conn.QueryContext(ctx, routinesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}
	defer func() { _ = routines.Close() }()
	for routines.Next() {
		var (
			name, kind string
			schema     sql.NullString
		)
		if err := routines.Scan(&name, &kind, &schema); err != nil {
			return nil, fmt.Errorf("failed to scan routine: %w", err)
		}
		out = append(out, adapter.Completion{
			Label:     name,
			TypeLabel: kind,
			Value:     name,
			Priority:  priorityRoutine,
			Context:   schema.String,
		})
	}
	if err := routines.Err(); err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}
	_ = routines.Close()

	settings, err := conn.QueryContext(ctx, settingsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer func() { _ = settings.Close() }()
	for settings.Next() {
		var name string
		if err := settings.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out = append(out, adapter.Completion{
			Label:     name,
			TypeLabel: "set",
			Value:     name,
			Priority:  prioritySetting,
		})
	}
	if err := settings.Err(); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	SortCompletions(out)
	return out, nil
}

// SortCompletions orders completions by priority, then label.
func SortCompletions(cs []adapter.Completion) {
	slices.SortStableFunc(cs, func(a, b adapter.Completion) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), strings.Compare(a.Label, b.Label))
	})
}
