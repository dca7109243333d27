package controller

import (
	"fmt"

	"github.com/sarchlab/dirsim/cache"
	"github.com/sarchlab/dirsim/coherence"
	"github.com/sarchlab/dirsim/profile"
)

// A Builder can build a Controller together with the caches, the directory
// and the profile it drives.
type Builder struct {
	numProcessors uint32
	numSets       uint64
	lineSize      uint64
	associativity int
	detector      bool
	profile       *profile.Profile
}

// MakeBuilder creates a builder with default parameter setting.
func MakeBuilder() Builder {
	return Builder{
		numProcessors: 4,
		numSets:       64,
		lineSize:      64,
		associativity: 4,
	}
}

// WithNumProcessors sets the number of processors. It must be a power of two
// and at most coherence.MaxProcessors.
func (b Builder) WithNumProcessors(n uint32) Builder {
	b.numProcessors = n
	return b
}

// WithNumSets sets the number of sets of every cache.
func (b Builder) WithNumSets(n uint64) Builder {
	b.numSets = n
	return b
}

// WithLineSize sets the number of bytes in a cache line.
func (b Builder) WithLineSize(n uint64) Builder {
	b.lineSize = n
	return b
}

// WithAssociativity sets the number of lines per set.
func (b Builder) WithAssociativity(n int) Builder {
	b.associativity = n
	return b
}

// WithDetector enables the speculative push of lines to frequent readers.
func (b Builder) WithDetector(enabled bool) Builder {
	b.detector = enabled
	return b
}

// WithProfile sets the profile to report to. By default, a new profile is
// created.
func (b Builder) WithProfile(p *profile.Profile) Builder {
	b.profile = p
	return b
}

func (b Builder) validate() error {
	if err := MustBePowerOfTwo(
		"number of processors", uint64(b.numProcessors),
	); err != nil {
		return err
	}

	if b.numProcessors > coherence.MaxProcessors {
		return fmt.Errorf("number of processors %d exceeds %d",
			b.numProcessors, coherence.MaxProcessors)
	}

	if b.associativity <= 0 {
		return fmt.Errorf("associativity %d must be positive", b.associativity)
	}

	if b.profile != nil && b.profile.NumProcessors() != b.numProcessors {
		return fmt.Errorf("profile tracks %d processors, controller has %d",
			b.profile.NumProcessors(), b.numProcessors)
	}

	return nil
}

// Build creates the controller.
func (b Builder) Build(name string) (*Controller, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	decoder, err := NewAddressDecoder(b.numSets, b.lineSize)
	if err != nil {
		return nil, err
	}

	p := b.profile
	if p == nil {
		p = profile.NewProfile(b.numProcessors)
	}

	c := &Controller{
		name:          name,
		numProcessors: b.numProcessors,
		decoder:       decoder,
		profile:       p,
	}

	c.directory = coherence.NewDirectory(b.numProcessors, b.lineSize, p)
	c.directory.SetDetector(b.detector)

	c.caches = make([]*cache.Cache, b.numProcessors)
	for pid := uint32(0); pid < b.numProcessors; pid++ {
		c.caches[pid] = cache.NewCache(
			pid, int(b.numSets), b.associativity,
			cache.NewLRUVictimFinder(), c)
	}

	return c, nil
}

// New creates a controller without the detector. It panics if the geometry
// is invalid.
func New(
	numProcessors uint32,
	numSets, lineSize uint64,
	associativity int,
) *Controller {
	c, err := MakeBuilder().
		WithNumProcessors(numProcessors).
		WithNumSets(numSets).
		WithLineSize(lineSize).
		WithAssociativity(associativity).
		Build("Controller")
	if err != nil {
		panic(err)
	}

	return c
}
