package main

import (
	"log"

	"buildsim.ai/internal/persistence/snapshot"
)

// saver writes snapshots handed over by the world loop and records them in
// the index. It runs until in is closed.
type saver struct {
	dir    string
	idx    runtimeIndex
	logger *log.Logger
}

func (s saver) write(snap snapshot.SnapshotV1) (string, error) {
	path := snapshot.PathFor(s.dir, snap.Header.SavedAtMs)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	if s.idx != nil {
		s.idx.RecordSave(path, snap)
	}
	return path, nil
}

func (s saver) run(in <-chan snapshot.SnapshotV1, done chan<- struct{}) {
	defer close(done)
	for snap := range in {
		path, err := s.write(snap)
		if err != nil {
			s.logger.Printf("save write: %v", err)
			continue
		}
		s.logger.Printf("saved %s", path)
	}
}
