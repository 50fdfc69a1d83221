// Package snapshot stores the final galaxy of a run next to its journal.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/scoring"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Round   int    `json:"round"`
	Digest  string `json:"digest"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed   uint64          `json:"seed"`
	Galaxy *galaxy.State   `json:"galaxy"`
	Total  int             `json:"total"`
	Ledger []scoring.Entry `json:"ledger"`
}

// New captures g and l. The galaxy is cloned so the caller may keep mutating it.
func New(runID string, seed uint64, g *galaxy.State, l *scoring.Ledger) SnapshotV1 {
	c := g.Clone()
	return SnapshotV1{
		Header: Header{Version: Version, RunID: runID, Round: c.Round, Digest: c.Digest()},
		Seed:   seed,
		Galaxy: c,
		Total:  l.Total(),
		Ledger: l.Entries(),
	}
}

// Path is where the snapshot for runID lives under a data directory.
func Path(dataDir, runID string) string {
	return filepath.Join(dataDir, "snapshots", runID+".snap.zst")
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
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

	br := bufio.NewReaderSize(dec, 64*1024)

	// The JSON header line is for humans and tooling; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if snap.Galaxy == nil {
		return snap, fmt.Errorf("snapshot %s has no galaxy", snap.Header.RunID)
	}
	return snap, nil
}

// Verify checks a snapshot against a re-simulated galaxy and ledger.
func (s SnapshotV1) Verify(g *galaxy.State, l *scoring.Ledger) error {
	if d := g.Digest(); d != s.Header.Digest {
		return fmt.Errorf("snapshot digest mismatch: got=%s want=%s", d, s.Header.Digest)
	}
	if l.Total() != s.Total {
		return fmt.Errorf("snapshot total mismatch: got=%d want=%d", l.Total(), s.Total)
	}
	if n := len(l.Entries()); n != len(s.Ledger) {
		return fmt.Errorf("snapshot ledger length mismatch: got=%d want=%d", n, len(s.Ledger))
	}
	return nil
}
