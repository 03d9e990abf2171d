package identity

import (
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// EntityId is a globally unique opaque identifier for any topological or
// model entity. Equality is bitwise; the zero value is the nil UUID and is
// never minted by New or FromSeed.
type EntityId struct {
	id uuid.UUID
}

// Nil is the zero EntityId, used as a sentinel (e.g. the sketch-origin anchor).
var Nil = EntityId{}

// New mints a random EntityId (crypto-random v4 UUID). Use for user-created
// features and entities where no deterministic seed is meaningful.
func New() EntityId {
	return EntityId{id: uuid.New()}
}

// FromSeed derives a deterministic EntityId via UUID v5 (SHA-1) of the OID
// namespace and the given seed bytes. Same seed always yields the same id,
// on any host or platform.
func FromSeed(seed string) EntityId {
	return EntityId{id: uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))}
}

// FromUUID wraps an existing UUID value, e.g. one recovered from storage.
func FromUUID(u uuid.UUID) EntityId {
	return EntityId{id: u}
}

// UUID returns the underlying UUID value.
func (e EntityId) UUID() uuid.UUID {
	return e.id
}

// IsNil reports whether this is the zero/sentinel EntityId.
func (e EntityId) IsNil() bool {
	return e.id == uuid.Nil
}

// String returns the canonical hyphenated UUID representation.
func (e EntityId) String() string {
	return e.id.String()
}

// MarshalText implements encoding.TextMarshaler so EntityId round-trips
// through JSON (struct fields and map keys) and YAML encoding, which honors
// TextMarshaler.
func (e EntityId) MarshalText() ([]byte, error) {
	return e.id.MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EntityId) UnmarshalText(b []byte) error {
	return e.id.UnmarshalText(b)
}

// UnmarshalYAML decodes the canonical string form. yaml.v3 honors
// TextMarshaler on encode but not TextUnmarshaler on decode, so the decode
// side is spelled out.
func (e *EntityId) UnmarshalYAML(value *yaml.Node) error {
	return e.id.UnmarshalText([]byte(value.Value))
}
