package dut

import (
	"context"
	"sort"

	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/result"
)

// Handler validates one check collection against a ready session. It returns
// findings as results; an error means the collection could not be evaluated
// at all (remote failure, payload the handler cannot interpret).
type Handler func(ctx context.Context, s *Session, c *design.Collection) (result.Results, error)

// Family is a product line's handler registrations.
type Family struct {
	Name     string
	Handlers map[design.Kind]Handler
}

// baseHandlers serve every family unless the family registers its own.
var baseHandlers = map[design.Kind]Handler{
	design.KindDeviceInfo: checkDeviceInfo,
	design.KindInterfaces: checkInterfaces,
	design.KindIPAddrs:    checkIPAddrs,
	design.KindCabling:    checkCabling,
}

// Dispatcher resolves a collection kind to a handler: the family table
// first, then the base table. A kind found in neither is not an error.
type Dispatcher struct {
	family map[design.Kind]Handler
	base   map[design.Kind]Handler
}

// NewDispatcher creates a dispatcher over the family handlers and the shared
// base handlers.
func NewDispatcher(family map[design.Kind]Handler) *Dispatcher {
	return newDispatcher(family, baseHandlers)
}

func newDispatcher(family, base map[design.Kind]Handler) *Dispatcher {
	if family == nil {
		family = map[design.Kind]Handler{}
	}
	if base == nil {
		base = map[design.Kind]Handler{}
	}
	return &Dispatcher{family: family, base: base}
}

// Lookup returns the handler for kind.
func (d *Dispatcher) Lookup(kind design.Kind) (Handler, bool) {
	if h, ok := d.family[kind]; ok && h != nil {
		return h, true
	}
	if h, ok := d.base[kind]; ok && h != nil {
		return h, true
	}
	return nil, false
}

// Kinds lists every kind the dispatcher can serve, sorted.
func (d *Dispatcher) Kinds() []design.Kind {
	seen := map[design.Kind]bool{}
	for k := range d.family {
		seen[k] = true
	}
	for k := range d.base {
		seen[k] = true
	}
	kinds := make([]design.Kind, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
