// Package journal records runs as compressed JSONL so they can be inspected and replayed.
//
// A run is a header line, one line per round, and an optional report line. Several runs
// may share a file; lines of a run are contiguous.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/scoring"
)

const (
	Version    = 1
	FilePrefix = "rounds"
)

type Kind string

const (
	KindHeader Kind = "header"
	KindRound  Kind = "round"
	KindReport Kind = "report"
)

var ErrNoRuns = errors.New("journal: no runs found")

// Header identifies a run and everything needed to rebuild its engine.
type Header struct {
	Version       int       `json:"version"`
	RunID         string    `json:"run_id"`
	Seed          uint64    `json:"seed"`
	Rounds        int       `json:"rounds"`
	Members       []string  `json:"members"`
	CatalogDigest string    `json:"catalog_digest"`
	Deliberate    bool      `json:"deliberate,omitempty"`
	GalNet        bool      `json:"galnet,omitempty"`
	StartedAt     time.Time `json:"started_at"`
}

// Line is one journal entry. Exactly one payload is set, matching Kind.
type Line struct {
	Kind   Kind                 `json:"kind"`
	RunID  string               `json:"run_id"`
	Header *Header              `json:"header,omitempty"`
	Round  *council.RoundRecord `json:"round,omitempty"`
	Report *scoring.Report      `json:"report,omitempty"`
}

// Journal is a council.Sink writing one run.
type Journal struct {
	w     *segmentWriter
	runID string
}

// Open starts a run in dir and writes its header.
func Open(dir string, hdr Header) (*Journal, error) {
	return open(newSegmentWriter(dir, FilePrefix), hdr)
}

func open(w *segmentWriter, hdr Header) (*Journal, error) {
	if hdr.RunID == "" {
		return nil, errors.New("journal: missing run id")
	}
	if hdr.Version == 0 {
		hdr.Version = Version
	}
	j := &Journal{w: w, runID: hdr.RunID}
	if err := w.Write(Line{Kind: KindHeader, RunID: hdr.RunID, Header: &hdr}); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("journal: write header: %w", err)
	}
	return j, nil
}

func (j *Journal) RecordRound(rec *council.RoundRecord) error {
	return j.w.Write(Line{Kind: KindRound, RunID: j.runID, Round: rec})
}

// Finish appends the final report.
func (j *Journal) Finish(rep scoring.Report) error {
	return j.w.Write(Line{Kind: KindReport, RunID: j.runID, Report: &rep})
}

func (j *Journal) Close() error { return j.w.Close() }

// Files lists the segments this run was written to.
func (j *Journal) Files() []string { return j.w.Paths() }

var _ council.Sink = (*Journal)(nil)

// Run is one run read back from disk.
type Run struct {
	Header Header
	Rounds []council.RoundRecord
	Report *scoring.Report
}

// ListFiles returns the journal files in dir in chronological order.
func ListFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, FilePrefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadDir reads every run in dir, in the order their headers were written.
func ReadDir(dir string) ([]*Run, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	byID := map[string]*Run{}
	var runs []*Run
	for _, path := range files {
		err := readFile(path, func(l Line) error {
			if l.Kind == KindHeader {
				if l.Header == nil {
					return errors.New("header line without header")
				}
				if _, dup := byID[l.RunID]; dup {
					return fmt.Errorf("duplicate run %s", l.RunID)
				}
				r := &Run{Header: *l.Header}
				byID[l.RunID] = r
				runs = append(runs, r)
				return nil
			}
			r, ok := byID[l.RunID]
			if !ok {
				return fmt.Errorf("%s line for unknown run %s", l.Kind, l.RunID)
			}
			switch l.Kind {
			case KindRound:
				if l.Round == nil {
					return errors.New("round line without round")
				}
				r.Rounds = append(r.Rounds, *l.Round)
			case KindReport:
				r.Report = l.Report
			default:
				return fmt.Errorf("unknown line kind %q", l.Kind)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return runs, nil
}

// Find returns the run with the given id, or the most recent run when id is empty.
func Find(runs []*Run, id string) (*Run, error) {
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	if id == "" {
		return runs[len(runs)-1], nil
	}
	for _, r := range runs {
		if r.Header.RunID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("journal: run %s not found", id)
}

func readFile(path string, fn func(Line) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var l Line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			return fmt.Errorf("%s:%d: unmarshal: %w", filepath.Base(path), line, err)
		}
		if err := fn(l); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
	}
	return sc.Err()
}
