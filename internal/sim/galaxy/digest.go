package galaxy

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// Digest hashes the full state in a canonical order. Two states with the same digest are
// indistinguishable to every template predicate and generator.
func (s *State) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, int64(s.Round))

	digestWriteU64(h, &tmp, uint64(len(s.Sectors)))
	for _, sec := range s.Sectors {
		digestWriteString(h, &tmp, sec.Name)
		h.Write([]byte{byte(sec.Kind)})
	}

	digestWriteU64(h, &tmp, uint64(len(s.Species)))
	for _, sp := range s.Species {
		digestWriteString(h, &tmp, sp.Name)
		digestWriteU64(h, &tmp, uint64(len(sp.Traits)))
		for _, tr := range sp.Traits {
			digestWriteString(h, &tmp, tr)
		}
	}

	names := make([]string, 0, len(s.Relations))
	for n := range s.Relations {
		names = append(names, n)
	}
	sort.Strings(names)
	digestWriteU64(h, &tmp, uint64(len(names)))
	for _, n := range names {
		digestWriteString(h, &tmp, n)
		h.Write([]byte{byte(s.Relations[n])})
	}

	digestWriteU64(h, &tmp, uint64(len(s.Discoveries)))
	for _, d := range s.Discoveries {
		digestWriteString(h, &tmp, d.Name)
		digestWriteString(h, &tmp, d.Category)
	}

	digestWriteU64(h, &tmp, uint64(len(s.Threats)))
	for _, t := range s.Threats {
		digestWriteString(h, &tmp, t.Name)
		digestWriteI64(h, &tmp, int64(t.Severity))
		digestWriteI64(h, &tmp, int64(t.RoundsActive))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}
