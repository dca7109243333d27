// Package controller ties the private caches of all processors to the
// coherence directory. Every access first makes sure that the line is
// present in the cache of the requester, evicting a victim if needed, and
// then lets the directory decide the response and the cost.
package controller

import (
	"log"

	"github.com/sarchlab/dirsim/cache"
	"github.com/sarchlab/dirsim/coherence"
	"github.com/sarchlab/dirsim/hooking"
	"github.com/sarchlab/dirsim/profile"
)

// Controller drives one simulation step at a time. It is not safe for
// concurrent use.
type Controller struct {
	hooking.HookableBase

	name          string
	numProcessors uint32
	decoder       AddressDecoder
	caches        []*cache.Cache
	directory     *coherence.Directory
	profile       *profile.Profile

	evictCost uint64
	evictHops uint64
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// NumProcessors returns the number of processors.
func (c *Controller) NumProcessors() uint32 {
	return c.numProcessors
}

// Decoder returns the address decoder shared by all caches.
func (c *Controller) Decoder() AddressDecoder {
	return c.decoder
}

// Directory returns the coherence directory.
func (c *Controller) Directory() *coherence.Directory {
	return c.directory
}

// Profile returns the profile that collects the statistics.
func (c *Controller) Profile() *profile.Profile {
	return c.profile
}

// Cache returns the cache of a processor.
func (c *Controller) Cache(pid uint32) *cache.Cache {
	c.mustBeKnown(pid)
	return c.caches[pid]
}

func (c *Controller) mustBeKnown(pid uint32) {
	if pid >= c.numProcessors {
		log.Panicf("processor %d does not exist, only %d processors",
			pid, c.numProcessors)
	}
}

// LoadSingleLine simulates a load of addr by pid.
func (c *Controller) LoadSingleLine(addr uint64, pid uint32) coherence.Outcome {
	c.resetEvictCharge()
	c.Touch(pid, addr)

	o := c.directory.ProcessRead(pid, addr)
	c.addEvictCharge(&o)
	c.notifyAccess(pid, addr, hooking.Load, o)

	return o
}

// StoreSingleLine simulates a store to addr by pid.
func (c *Controller) StoreSingleLine(addr uint64, pid uint32) coherence.Outcome {
	c.resetEvictCharge()
	c.Touch(pid, addr)

	o := c.directory.ProcessWrite(pid, addr, c)
	c.addEvictCharge(&o)
	c.notifyPushes(pid, addr, o.Pushed)
	c.notifyAccess(pid, addr, hooking.Store, o)

	return o
}

// FetchCacheLine makes sure that addr is present in the cache of pid. If
// replace is true, the line becomes the most recently used one of its set.
// Otherwise, the LRU order is left as is.
func (c *Controller) FetchCacheLine(pid uint32, addr uint64, replace bool) {
	c.mustBeKnown(pid)

	tag, setIndex, _ := c.decoder.Decode(addr)
	c.caches[pid].Fetch(setIndex, tag, addr, replace)
}

// Touch brings addr into the cache of pid as a regular access.
func (c *Controller) Touch(pid uint32, addr uint64) {
	c.FetchCacheLine(pid, addr, true)
}

// Install places addr into the cache of pid without changing the LRU order.
func (c *Controller) Install(pid uint32, addr uint64) {
	c.FetchCacheLine(pid, addr, false)
}

// Contains returns true if addr is present in the cache of pid.
func (c *Controller) Contains(pid uint32, addr uint64) bool {
	c.mustBeKnown(pid)

	tag, setIndex, _ := c.decoder.Decode(addr)

	return c.caches[pid].Contains(setIndex, tag)
}

// Invalidate is called by the caches when they evict a line. The directory
// drops the processor from the sharers of the line. The charge is added to
// the outcome of the access in progress.
func (c *Controller) Invalidate(pid uint32, addr uint64) {
	cost, hops := c.directory.Invalidate(pid, addr)
	c.evictCost += cost
	c.evictHops += hops

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosEvict,
		Item:   hooking.Eviction{PID: pid, Addr: addr},
	})
}

func (c *Controller) resetEvictCharge() {
	c.evictCost = 0
	c.evictHops = 0
}

// addEvictCharge covers the victims of the requester and, for writes, of
// the readers that received a push.
func (c *Controller) addEvictCharge(o *coherence.Outcome) {
	o.EvictCost = c.evictCost
	o.EvictHops = c.evictHops
	c.resetEvictCharge()
}

// StatsToString renders the report of the profile.
func (c *Controller) StatsToString() string {
	return c.profile.StatsToString()
}

func (c *Controller) notifyAccess(
	pid uint32,
	addr uint64,
	kind hooking.AccessKind,
	o coherence.Outcome,
) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosAccess,
		Item: hooking.Access{
			PID:      pid,
			Addr:     addr,
			LineAddr: c.decoder.LineAddress(addr),
			Kind:     kind,
			Outcome:  o,
		},
	})
}

func (c *Controller) notifyPushes(writer uint32, addr uint64, readers []uint32) {
	if c.NumHooks() == 0 {
		return
	}

	for _, reader := range readers {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    hooking.HookPosPush,
			Item: hooking.Push{
				Writer: writer,
				Reader: reader,
				Addr:   c.decoder.LineAddress(addr),
			},
		})
	}
}
