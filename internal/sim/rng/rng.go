// Package rng provides the single-stream deterministic random source consumed by event
// generation. Templates only ever draw through NextU32, so the number and order of draws
// per generated event is part of a run's reproducibility.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

// Source yields uniformly distributed unsigned 32-bit integers.
type Source interface {
	NextU32() uint32
}

// streamSalt selects the PCG stream. Changing it changes every seeded run.
const streamSalt = 0x9e3779b97f4a7c15

// PCG is a seeded PCG-DXSM generator. The output of math/rand/v2's PCG is fixed by its
// package contract, so a seed reproduces the same stream across Go releases.
type PCG struct {
	p *mrand.PCG
}

func New(seed uint64) *PCG {
	return &PCG{p: mrand.NewPCG(seed, seed^streamSalt)}
}

func (s *PCG) NextU32() uint32 {
	return uint32(s.p.Uint64() >> 32)
}

// EntropySeed returns a non-deterministic seed for interactive runs. The seed is returned
// (rather than hidden inside a source) so the run can still be journaled and replayed.
func EntropySeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms; keep a usable seed anyway.
		return streamSalt
	}
	seed := binary.LittleEndian.Uint64(b[:])
	if seed == 0 {
		seed = streamSalt
	}
	return seed
}

// Counter wraps a Source and counts draws.
type Counter struct {
	Src   Source
	Draws int
}

func (c *Counter) NextU32() uint32 {
	c.Draws++
	return c.Src.NextU32()
}

// Sequence replays a fixed list of values, cycling when exhausted. Useful for forcing
// specific template branches in tests.
type Sequence struct {
	Values []uint32
	pos    int
}

func (s *Sequence) NextU32() uint32 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	return v
}
