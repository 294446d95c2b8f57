package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	Version = 1
	Ext     = ".save.zst"
)

var ErrNoSaves = errors.New("no saves found")

type Header struct {
	Version   int    `json:"version"`
	SaveID    string `json:"save_id"`
	SavedAtMs int64  `json:"saved_at_ms"`
}

// SnapshotV1 is one save file. Core holds the simulation state; Host stands in
// for the host game's own save data and is kept apart from it.
type SnapshotV1 struct {
	Header Header `json:"header"`

	CatalogDigest string `json:"catalog_digest,omitempty"`
	StateDigest   string `json:"state_digest,omitempty"`

	Core CoreV1 `json:"core"`
	Host HostV1 `json:"host"`
}

type CoreV1 struct {
	Areas               []AreaV1  `json:"areas"`
	UnlockedBuildingIDs []int     `json:"unlocked_building_ids"`
	FiniteStock         []StockV1 `json:"finite_stock"`
}

type AreaV1 struct {
	MapID         int   `json:"map_id"`
	EventID       int   `json:"event_id"`
	MinTier       int   `json:"min_tier"`
	Occupant      *int  `json:"occupant,omitempty"`
	LastAccrualMs int64 `json:"last_accrual_ms"`
}

type StockV1 struct {
	BuildingID int `json:"building_id"`
	Amount     int `json:"amount"`
}

type HostV1 struct {
	Gold      int         `json:"gold"`
	Variables map[int]int `json:"variables,omitempty"`
}

// PathFor returns dir/<saved_at_ms>.save.zst.
func PathFor(dir string, savedAtMs int64) string {
	return filepath.Join(dir, fmt.Sprintf("%d%s", savedAtMs, Ext))
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeFile(path string, snap SnapshotV1) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is duplicated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported save version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

type SaveRef struct {
	Path      string
	SavedAtMs int64
}

// List returns the saves in dir ordered oldest first. Files not named
// <saved_at_ms>.save.zst are ignored.
func List(dir string) ([]SaveRef, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []SaveRef
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, Ext) {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(name, Ext), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, SaveRef{Path: filepath.Join(dir, name), SavedAtMs: ms})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAtMs < out[j].SavedAtMs })
	return out, nil
}

func Latest(dir string) (string, error) {
	refs, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(refs) == 0 {
		return "", ErrNoSaves
	}
	return refs[len(refs)-1].Path, nil
}
