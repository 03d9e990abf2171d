package identity

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces a deterministic sequence of EntityIds scoped to a
// namespace derived from a seed string. Same seed, same call sequence,
// same ids — across runs, hosts, and goroutines.
//
// The zero value is not usable; construct with NewGenerator.
type Generator struct {
	namespace uuid.UUID
	counter   *atomic.Uint64
}

// NewGenerator creates a generator whose namespace is v5(NAMESPACE_OID, seed).
// The seed should be unique to its context (e.g. a feature id's string form).
func NewGenerator(seed string) *Generator {
	return &Generator{
		namespace: uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)),
		counter:   new(atomic.Uint64),
	}
}

// Next returns the next deterministic id in the sequence: v5(namespace,
// big-endian counter bytes), then increments the counter.
func (g *Generator) Next() EntityId {
	count := g.counter.Add(1) - 1
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], count)
	return EntityId{id: uuid.NewSHA1(g.namespace, buf[:])}
}

// Fork derives an independent child generator. It consumes one id from this
// generator (advancing its counter) and seeds the child from
// "<that id>:<discriminator>". Two forks of the same parent state with the
// same discriminator are reproducible; two forks from the same live
// generator instance are not (the parent's counter has moved between them).
func (g *Generator) Fork(discriminator string) *Generator {
	base := g.Next()
	return NewGenerator(base.String() + ":" + discriminator)
}
