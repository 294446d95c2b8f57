package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"buildsim.ai/internal/persistence/snapshot"
	"buildsim.ai/internal/sim/catalogs"
	"buildsim.ai/internal/sim/tuning"
	"buildsim.ai/internal/sim/world"
)

// SQLiteIndex is a queryable read model of audits and saves. The JSONL audit
// log and the save files stay the source of truth: writes are queued and
// dropped when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit atomic.Uint64
	dropSave  atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSave
	reqBarrier
)

type req struct {
	kind reqKind

	audit world.AuditEntry
	save  SaveRow
	done  chan struct{}
}

type SaveRow struct {
	SavedAtMs     int64  `json:"saved_at_ms"`
	SaveID        string `json:"save_id"`
	Path          string `json:"path"`
	CatalogDigest string `json:"catalog_digest"`
	Areas         int    `json:"areas"`
	Occupied      int    `json:"occupied"`
	Unlocked      int    `json:"unlocked"`
	Gold          int    `json:"gold"`
}

type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	DropAuditTotal uint64
	DropSaveTotal  uint64
}

const defaultQueue = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, queue)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seq INTEGER NOT NULL,
			at_ms INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			loc TEXT,
			building_id INTEGER,
			quantity INTEGER NOT NULL,
			gold_delta INTEGER NOT NULL,
			gold_after INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action_at ON audits(action, at_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_loc_at ON audits(loc, at_ms);`,
		`CREATE TABLE IF NOT EXISTS saves (
			saved_at_ms INTEGER PRIMARY KEY,
			save_id TEXT NOT NULL,
			path TEXT NOT NULL,
			catalog_digest TEXT NOT NULL,
			areas INTEGER NOT NULL,
			occupied INTEGER NOT NULL,
			unlocked INTEGER NOT NULL,
			gold INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropAuditTotal: s.dropAudit.Load(),
		DropSaveTotal:  s.dropSave.Load(),
	}
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSave(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	occupied := 0
	for _, a := range snap.Core.Areas {
		if a.Occupant != nil {
			occupied++
		}
	}
	r := SaveRow{
		SavedAtMs:     snap.Header.SavedAtMs,
		SaveID:        snap.Header.SaveID,
		Path:          path,
		CatalogDigest: snap.CatalogDigest,
		Areas:         len(snap.Core.Areas),
		Occupied:      occupied,
		Unlocked:      len(snap.Core.UnlockedBuildingIDs),
		Gold:          snap.Host.Gold,
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		s.dropSave.Add(1)
	}
}

// Sync waits until everything queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqBarrier, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalog stores the building catalog and the applied tuning so a save
// can be matched with the configuration that produced it.
func (s *SQLiteIndex) UpsertCatalog(cat *catalogs.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	buildings, err := json.Marshal(cat.Buildings)
	if err != nil {
		return err
	}
	tuneJSON, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(tuneJSON)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if _, err := stmt.Exec("buildings", cat.Digest, string(buildings), now); err != nil {
		return err
	}
	if _, err := stmt.Exec("tuning", hex.EncodeToString(sum[:]), string(tuneJSON), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	return d, err
}

// RecentAudits returns up to n audit entries, newest first.
func (s *SQLiteIndex) RecentAudits(ctx context.Context, n int) ([]world.AuditEntry, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM audits ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []world.AuditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e world.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Saves lists recorded saves, newest first.
func (s *SQLiteIndex) Saves(ctx context.Context) ([]SaveRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT saved_at_ms,save_id,path,catalog_digest,areas,occupied,unlocked,gold FROM saves ORDER BY saved_at_ms DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		if err := rows.Scan(&r.SavedAtMs, &r.SaveID, &r.Path, &r.CatalogDigest, &r.Areas, &r.Occupied, &r.Unlocked, &r.Gold); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(seq,at_ms,actor,action,loc,building_id,quantity,gold_delta,gold_after,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(saved_at_ms,save_id,path,catalog_digest,areas,occupied,unlocked,gold) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
		if insertSave != nil {
			_ = insertSave.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqBarrier {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			if insertAudit == nil {
				break
			}
			raw, _ := json.Marshal(a)
			var loc, building any
			if a.Loc != "" {
				loc = a.Loc
			}
			if a.BuildingID != nil {
				building = *a.BuildingID
			}
			if _, err := tx.Stmt(insertAudit).Exec(
				int64(a.Seq),
				a.AtMs,
				a.Actor,
				a.Action,
				loc,
				building,
				a.Quantity,
				a.GoldDelta,
				a.GoldAfter,
				string(raw),
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSave:
			sv := r.save
			if insertSave == nil {
				break
			}
			if _, err := tx.Stmt(insertSave).Exec(
				sv.SavedAtMs,
				sv.SaveID,
				sv.Path,
				sv.CatalogDigest,
				sv.Areas,
				sv.Occupied,
				sv.Unlocked,
				sv.Gold,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
