// Package chat tracks connected participants, their display names and the
// rooms they are in, and turns inbound lines into state changes and events.
package chat

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/samber/lo"
)

// ErrNamesExhausted is returned when every default name in the configured
// range is already taken.
var ErrNamesExhausted = errors.New("chat: no free default name")

// randomAttempts bounds the random probing done by Allocate before it falls
// back to scanning the range.
const randomAttempts = 64

// NameOptions configures default-name allocation.
type NameOptions struct {
	Prefix string
	Min    int
	Max    int
}

// DefaultNameOptions yields names of the form User1000..User9999.
func DefaultNameOptions() NameOptions {
	return NameOptions{Prefix: "User", Min: 1000, Max: 9999}
}

// NameRegistry is the set of display names currently in use. It is not safe
// for concurrent use; the Dispatcher serializes access to it.
type NameRegistry struct {
	names map[string]struct{}
	opts  NameOptions
	intn  func(n int) int
}

// NewNameRegistry returns an empty registry allocating defaults per opts.
func NewNameRegistry(opts NameOptions) *NameRegistry {
	if opts.Max < opts.Min {
		opts.Min, opts.Max = opts.Max, opts.Min
	}
	return &NameRegistry{
		names: make(map[string]struct{}),
		opts:  opts,
		intn:  rand.IntN,
	}
}

// Insert reserves name and reports whether it was free.
func (r *NameRegistry) Insert(name string) bool {
	if _, taken := r.names[name]; taken {
		return false
	}
	r.names[name] = struct{}{}
	return true
}

// Remove releases name and reports whether it was reserved.
func (r *NameRegistry) Remove(name string) bool {
	if _, ok := r.names[name]; !ok {
		return false
	}
	delete(r.names, name)
	return true
}

// Contains reports whether name is reserved.
func (r *NameRegistry) Contains(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Allocate reserves and returns a free default name. Random candidates are
// tried first; if they keep colliding the whole range is scanned so a nearly
// full range still terminates.
func (r *NameRegistry) Allocate() (string, error) {
	span := r.opts.Max - r.opts.Min + 1
	for range randomAttempts {
		candidate := r.candidate(r.opts.Min + r.intn(span))
		if r.Insert(candidate) {
			return candidate, nil
		}
	}
	for n := r.opts.Min; n <= r.opts.Max; n++ {
		if candidate := r.candidate(n); r.Insert(candidate) {
			return candidate, nil
		}
	}
	return "", ErrNamesExhausted
}

// List returns every reserved name in ascending order.
func (r *NameRegistry) List() []string {
	names := lo.Keys(r.names)
	slices.Sort(names)
	return names
}

// Len returns the number of reserved names.
func (r *NameRegistry) Len() int {
	return len(r.names)
}

func (r *NameRegistry) candidate(n int) string {
	return r.opts.Prefix + strconv.Itoa(n)
}
