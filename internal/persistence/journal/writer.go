package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// segmentWriter appends journal lines to hourly segments named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst.
//
// The hour is checked on every line, so a run crossing an hour boundary continues in the
// next segment and ReadDir stitches it back together by run id. Reopening a segment that
// already exists appends a fresh zstd frame; the decoder reads concatenated frames as one
// stream. Every line is flushed through the encoder before Write returns, so a crash loses
// at most the line being written and the frame trailer.
type segmentWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu    sync.Mutex
	hour  string
	seg   *segment
	paths []string
}

type segment struct {
	f   *os.File
	enc *zstd.Encoder
	buf *bufio.Writer
}

func newSegmentWriter(dir, prefix string) *segmentWriter {
	return &segmentWriter{dir: dir, prefix: prefix, now: time.Now}
}

// Write encodes v as one line.
func (w *segmentWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if hour := w.now().UTC().Format("2006-01-02-15"); hour != w.hour || w.seg == nil {
		if err := w.switchLocked(hour); err != nil {
			return err
		}
	}
	s := w.seg
	if _, err := s.buf.Write(b); err != nil {
		return err
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

// Paths lists the segments written so far, in order.
func (w *segmentWriter) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.paths...)
}

func (w *segmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.seg.close()
	w.seg, w.hour = nil, ""
	return err
}

func (w *segmentWriter) switchLocked(hour string) error {
	if err := w.seg.close(); err != nil {
		return err
	}
	w.seg = nil
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
	s, err := openSegment(path)
	if err != nil {
		return fmt.Errorf("journal: open segment: %w", err)
	}
	w.seg, w.hour = s, hour
	w.paths = append(w.paths, path)
	return nil
}

func openSegment(path string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{f: f, enc: enc, buf: bufio.NewWriterSize(enc, 32*1024)}, nil
}

// close finishes the zstd frame. It is a no-op on a nil segment.
func (s *segment) close() error {
	if s == nil {
		return nil
	}
	err := s.buf.Flush()
	if cerr := s.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
