package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"buildsim.ai/internal/persistence/indexdb"
	persistlog "buildsim.ai/internal/persistence/log"
	"buildsim.ai/internal/persistence/snapshot"
	"buildsim.ai/internal/sim/world"
)

func writeSave(t *testing.T, dataDir string, at int64, gold int) string {
	t.Helper()
	occ := 0
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, SaveID: "save", SavedAtMs: at},
		Core: snapshot.CoreV1{
			Areas: []snapshot.AreaV1{
				{MapID: 1, EventID: 1, MinTier: 1, Occupant: &occ},
				{MapID: 1, EventID: 2, MinTier: 1},
			},
			UnlockedBuildingIDs: []int{0},
		},
		Host: snapshot.HostV1{Gold: gold},
	}
	path := snapshot.PathFor(saveDir(dataDir), at)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write save: %v", err)
	}
	return path
}

func TestListAndShow(t *testing.T) {
	dir := t.TempDir()
	writeSave(t, dir, 1_000, 10)
	latest := writeSave(t, dir, 2_000, 20)

	var buf bytes.Buffer
	if err := listCmd(&buf, []string{"-data", dir}); err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[1], latest) {
		t.Fatalf("unexpected listing %q", buf.String())
	}

	buf.Reset()
	if err := showCmd(&buf, []string{"-data", dir}); err != nil {
		t.Fatalf("show: %v", err)
	}
	var s saveSummary
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Path != latest || s.Gold != 20 || s.Areas != 2 || s.Occupied != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestShowWithoutSaves(t *testing.T) {
	err := showCmd(&bytes.Buffer{}, []string{"-data", t.TempDir()})
	var ue usageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestAuditsFilter(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewAuditLogger(dir)
	for i, a := range []string{"PURCHASE", "CONSTRUCT", "PURCHASE", "COLLECT"} {
		e := world.AuditEntry{Seq: uint64(i + 1), Action: a}
		if a == "CONSTRUCT" {
			e.Loc = "1:2"
		}
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_ = l.Close()

	var buf bytes.Buffer
	if err := auditsCmd(&buf, []string{"-data", dir, "-action", "purchase", "-limit", "1"}); err != nil {
		t.Fatalf("audits: %v", err)
	}
	var e world.AuditEntry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil || e.Seq != 3 {
		t.Fatalf("expected last purchase, got %q (%v)", buf.String(), err)
	}

	buf.Reset()
	if err := auditsCmd(&buf, []string{"-data", dir, "-loc", "1:2"}); err != nil {
		t.Fatalf("audits: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 || !strings.Contains(buf.String(), "CONSTRUCT") {
		t.Fatalf("unexpected loc filter output %q", buf.String())
	}
}

func TestDBQueries(t *testing.T) {
	dir := t.TempDir()
	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index", "buildsim.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.WriteAudit(world.AuditEntry{Seq: 1, Action: "PURCHASE", GoldDelta: -30})
	_ = idx.WriteAudit(world.AuditEntry{Seq: 2, Action: "COLLECT", GoldDelta: 12})
	_ = idx.WriteAudit(world.AuditEntry{Seq: 3, Action: "PURCHASE", GoldDelta: -20})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var buf bytes.Buffer
	if err := dbCmd(&buf, []string{"-data", dir, "gold"}); err != nil {
		t.Fatalf("db gold: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two action groups, got %q", buf.String())
	}
	var row struct {
		Action string `json:"action"`
		N      int    `json:"n"`
		Gold   int    `json:"gold"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.Action != "PURCHASE" || row.N != 2 || row.Gold != -50 {
		t.Fatalf("unexpected purchase row %+v", row)
	}

	if err := dbCmd(&buf, []string{"-data", dir, "nope"}); err == nil {
		t.Fatalf("expected unknown query error")
	}
}

func TestRemoteCmdReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = rw.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	if err := remoteCmd(&buf, "save", http.MethodPost, "/admin/v1/save", time.Second, []string{"-url", srv.URL}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if strings.TrimSpace(buf.String()) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", buf.String())
	}
	if err := remoteCmd(&buf, "state", http.MethodGet, "/admin/v1/state", time.Second, []string{"-url", srv.URL}); err == nil {
		t.Fatalf("expected non-2xx to fail")
	}
}
