package packet

import (
	"errors"
	"fmt"
)

var ErrRegistryConflict = errors.New("packet registry conflict")

// Key selects one id table.
type Key struct {
	Protocol  int32
	State     State
	Direction Direction
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s", k.Protocol, k.State, k.Direction)
}

// ConflictError reports a registration that would make a table ambiguous.
type ConflictError struct {
	Key  Key
	ID   int32
	Kind Kind
	With Kind
}

func (e *ConflictError) Error() string {
	if e.With == e.Kind {
		return fmt.Sprintf("registry %s: %s registered twice", e.Key, e.Kind)
	}
	return fmt.Sprintf("registry %s: id 0x%02X used by %s and %s", e.Key, e.ID, e.With, e.Kind)
}

func (e *ConflictError) Unwrap() error { return ErrRegistryConflict }

type table struct {
	byID   map[int32]Kind
	byKind map[Kind]int32
}

type entry struct {
	key  Key
	id   int32
	kind Kind
}

// Builder collects registrations. Conflicts are reported by Build, not by
// Register, so a table can be declared as one flat list.
type Builder struct {
	entries   []entry
	canonical int32
}

func NewBuilder(canonical int32) *Builder {
	return &Builder{canonical: canonical}
}

// Register maps id to kind for every protocol in protocols.
func (b *Builder) Register(protocols []int32, state State, dir Direction, id int32, kind Kind) *Builder {
	for _, proto := range protocols {
		b.entries = append(b.entries, entry{Key{proto, state, dir}, id, kind})
	}
	return b
}

func (b *Builder) Build() (*Registry, error) {
	reg := &Registry{
		tables:    make(map[Key]*table),
		protocols: make(map[int32]struct{}),
		canonical: b.canonical,
	}

	for _, e := range b.entries {
		t, ok := reg.tables[e.key]
		if !ok {
			t = &table{byID: make(map[int32]Kind), byKind: make(map[Kind]int32)}
			reg.tables[e.key] = t
		}
		if prev, ok := t.byID[e.id]; ok {
			return nil, &ConflictError{Key: e.key, ID: e.id, Kind: e.kind, With: prev}
		}
		if _, ok := t.byKind[e.kind]; ok {
			return nil, &ConflictError{Key: e.key, ID: e.id, Kind: e.kind, With: e.kind}
		}
		t.byID[e.id] = e.kind
		t.byKind[e.kind] = e.id
		reg.protocols[e.key.Protocol] = struct{}{}
	}

	if _, ok := reg.protocols[b.canonical]; !ok {
		return nil, fmt.Errorf("%w: canonical protocol %d has no packets", ErrRegistryConflict, b.canonical)
	}
	return reg, nil
}

// MustBuild is Build for tables declared at init; a conflict is a programming
// error.
func (b *Builder) MustBuild() *Registry {
	reg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return reg
}

// Registry maps (protocol, state, direction, id) to packet kinds and back.
// It is immutable once built and safe for concurrent use.
type Registry struct {
	tables    map[Key]*table
	protocols map[int32]struct{}
	canonical int32
}

// ID returns the wire id of kind under key.
func (r *Registry) ID(key Key, kind Kind) (int32, bool) {
	t, ok := r.tables[key]
	if !ok {
		return 0, false
	}
	id, ok := t.byKind[kind]
	return id, ok
}

// Lookup returns the kind registered for id under key.
func (r *Registry) Lookup(key Key, id int32) (Kind, bool) {
	t, ok := r.tables[key]
	if !ok {
		return KindUnknown, false
	}
	kind, ok := t.byID[id]
	return kind, ok
}

// New returns a zero packet for id under key, or a *MalformedPacketError
// wrapping ErrUnknownPacket.
func (r *Registry) New(key Key, id int32) (Packet, error) {
	kind, ok := r.Lookup(key, id)
	if !ok {
		return nil, &MalformedPacketError{Err: fmt.Errorf("%w 0x%02X in %s", ErrUnknownPacket, id, key)}
	}
	return New(kind), nil
}

func (r *Registry) Supports(protocol int32) bool {
	_, ok := r.protocols[protocol]
	return ok
}

// Canonical is the protocol whose tables serve the Handshake and Status
// states, which do not depend on the client's version.
func (r *Registry) Canonical() int32 {
	return r.canonical
}

// Protocols lists the supported protocol numbers in no particular order.
func (r *Registry) Protocols() []int32 {
	out := make([]int32, 0, len(r.protocols))
	for p := range r.protocols {
		out = append(out, p)
	}
	return out
}
