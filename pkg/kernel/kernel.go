// Package kernel abstracts over a B-rep geometry library: box/extrude/revolve
// construction, boolean combination, tessellation, and STEP export. The core
// never touches a concrete solid representation directly — it calls through
// this interface, the way the rest of the module treats geometry kernels as
// an external collaborator.
//
// Named backends register themselves in a process-wide, mutex-guarded
// string-to-implementation map, panic on duplicate registration. This
// mirrors database/sql's driver registry and is the one piece of
// package-level state in the module — a plugin registry, not domain state.
package kernel

import (
	"fmt"
	"sync"

	"github.com/archkit/cadcore/pkg/geom"
)

// OpErrorKind is the closed set of ways a kernel operation can fail.
type OpErrorKind int

const (
	InvalidGeometry OpErrorKind = iota
	OperationFailed
	TessellationFailed
	NotImplemented
)

func (k OpErrorKind) String() string {
	switch k {
	case InvalidGeometry:
		return "InvalidGeometry"
	case OperationFailed:
		return "OperationFailed"
	case TessellationFailed:
		return "TessellationFailed"
	case NotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// OpError is the kernel's typed error, carrying enough context for a caller
// to match via errors.As without string-sniffing the message.
type OpError struct {
	Kind    OpErrorKind
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("kernel: %s: %s", e.Kind, e.Message)
}

// Solid is the kernel's opaque result type. This in-memory backend
// represents a solid directly as its triangle mesh; a real B-rep kernel
// plugged in behind this interface would carry its own internal
// representation instead and only expose tessellation through Tessellate.
type Solid struct {
	Mesh geom.TriangleMesh
	// Notes accumulates non-fatal diagnostics produced while building or
	// combining this solid (e.g. a no-op fillet/chamfer).
	Notes []string
}

// Backend is the capability set a host kernel must provide. All methods must
// be safe for concurrent read-only use once a Backend value is constructed
// (the core treats it as shared-immutable).
type Backend interface {
	CreateBox(width, height, depth float64) (Solid, error)
	CreateSphere(radius float64) (Solid, error)
	ExtrudePolygon(polygon geom.Polygon2D, params geom.ExtrudeParams) (Solid, error)
	RevolveProfile(profile []geom.Point2D, params geom.RevolveParams) (Solid, error)
	Tessellate(solid Solid, tolerance float64) (geom.TriangleMesh, error)
	BooleanUnion(a, b Solid) (Solid, error)
	BooleanIntersect(a, b Solid) (Solid, error)
	BooleanSubtract(a, b Solid) (Solid, error)
	Fillet(solid Solid, radius float64, edges []string) (Solid, error)
	Chamfer(solid Solid, distance float64, edges []string) (Solid, error)
	ExportSTEP(solid Solid) (string, error)
	ImportSTEP(text string) (Solid, error)
}

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// Register adds a backend under name. Panics on a duplicate name.
func Register(name string, b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := backends[name]; exists {
		panic(fmt.Sprintf("kernel: backend %q already registered", name))
	}
	backends[name] = b
}

// Get retrieves a registered backend by name, or false if none is registered
// under that name.
func Get(name string) (Backend, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	b, ok := backends[name]
	return b, ok
}

// List returns every registered backend name.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}
