package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("db", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	action := fs.String("action", "", "action filter (audits)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	q := "saves"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "buildsim.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	switch q {
	case "saves":
		return queryRows(out, db, `SELECT saved_at_ms, save_id, path, areas, occupied, unlocked, gold FROM saves ORDER BY saved_at_ms DESC LIMIT ?`, *limit)
	case "audits":
		if a := strings.ToUpper(strings.TrimSpace(*action)); a != "" {
			return queryRows(out, db, `SELECT seq, at_ms, actor, action, loc, building_id, quantity, gold_delta, gold_after FROM audits WHERE action=? ORDER BY id DESC LIMIT ?`, a, *limit)
		}
		return queryRows(out, db, `SELECT seq, at_ms, actor, action, loc, building_id, quantity, gold_delta, gold_after FROM audits ORDER BY id DESC LIMIT ?`, *limit)
	case "gold":
		// Net gold flow per action kind.
		return queryRows(out, db, `SELECT action, COUNT(*) AS n, SUM(gold_delta) AS gold FROM audits GROUP BY action ORDER BY action LIMIT ?`, *limit)
	case "catalogs":
		return queryRows(out, db, `SELECT name, digest, updated_at FROM catalogs ORDER BY name LIMIT ?`, *limit)
	default:
		return usageError{fmt.Sprintf("unknown query %q (want saves|audits|gold|catalogs)", q)}
	}
}

// queryRows prints each row as one JSON object keyed by column name.
func queryRows(out io.Writer, db *sql.DB, query string, args ...any) error {
	rows, err := db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	enc := json.NewEncoder(out)
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				m[c] = string(b)
				continue
			}
			m[c] = vals[i]
		}
		if err := enc.Encode(m); err != nil {
			return err
		}
	}
	return rows.Err()
}
