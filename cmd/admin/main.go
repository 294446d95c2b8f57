package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	persistlog "buildsim.ai/internal/persistence/log"
	"buildsim.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "show":
			exitOn(showCmd(os.Stdout, os.Args[2:]))
			return
		case "audits":
			exitOn(auditsCmd(os.Stdout, os.Args[2:]))
			return
		case "db":
			exitOn(dbCmd(os.Stdout, os.Args[2:]))
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	exitOn(listCmd(os.Stdout, os.Args[1:]))
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	var ue usageError
	if errors.As(err, &ue) {
		os.Exit(2)
	}
	os.Exit(1)
}

func saveDir(dataDir string) string { return filepath.Join(dataDir, "saves") }

func listCmd(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	refs, err := snapshot.List(saveDir(*dataDir))
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	for _, r := range refs {
		fmt.Fprintf(out, "%s\t%s\n", time.UnixMilli(r.SavedAtMs).UTC().Format(time.RFC3339), r.Path)
	}
	return nil
}

type saveSummary struct {
	Path          string `json:"path"`
	SaveID        string `json:"save_id"`
	SavedAtMs     int64  `json:"saved_at_ms"`
	CatalogDigest string `json:"catalog_digest"`
	StateDigest   string `json:"state_digest"`
	Areas         int    `json:"areas"`
	Occupied      int    `json:"occupied"`
	Unlocked      []int  `json:"unlocked"`
	FiniteStock   any    `json:"finite_stock"`
	Gold          int    `json:"gold"`
	Variables     int    `json:"variables"`
}

func showCmd(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	path := fs.String("save", "", "save path (optional; defaults to latest)")
	full := fs.Bool("full", false, "print every area instead of a summary")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	p := strings.TrimSpace(*path)
	if p == "" {
		latest, err := snapshot.Latest(saveDir(*dataDir))
		if errors.Is(err, snapshot.ErrNoSaves) {
			return usageError{"no save found; provide -save or run the server until it writes one"}
		}
		if err != nil {
			return err
		}
		p = latest
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		return fmt.Errorf("read save: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if *full {
		return enc.Encode(snap)
	}
	s := saveSummary{
		Path:          p,
		SaveID:        snap.Header.SaveID,
		SavedAtMs:     snap.Header.SavedAtMs,
		CatalogDigest: snap.CatalogDigest,
		StateDigest:   snap.StateDigest,
		Areas:         len(snap.Core.Areas),
		Unlocked:      snap.Core.UnlockedBuildingIDs,
		FiniteStock:   snap.Core.FiniteStock,
		Gold:          snap.Host.Gold,
		Variables:     len(snap.Host.Variables),
	}
	for _, a := range snap.Core.Areas {
		if a.Occupant != nil {
			s.Occupied++
		}
	}
	return enc.Encode(s)
}

func auditsCmd(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("audits", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	action := fs.String("action", "", "only entries with this action (e.g. PURCHASE)")
	loc := fs.String("loc", "", "only entries for this area, as map:event")
	limit := fs.Int("limit", 0, "print at most the last N matches (0 = all)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	entries, err := persistlog.ReadAudits(*dataDir)
	if err != nil {
		return fmt.Errorf("read audit: %w", err)
	}
	wantAction := strings.ToUpper(strings.TrimSpace(*action))
	wantLoc := strings.TrimSpace(*loc)

	var lines [][]byte
	for _, e := range entries {
		if wantAction != "" && e.Action != wantAction {
			continue
		}
		if wantLoc != "" && e.Loc != wantLoc {
			continue
		}
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		lines = append(lines, b)
	}
	if *limit > 0 && len(lines) > *limit {
		lines = lines[len(lines)-*limit:]
	}
	for _, b := range lines {
		fmt.Fprintln(out, string(b))
	}
	return nil
}
