package core

import "context"

// CapabilityProvider resolves the capability set of an actor reference.
// The engine never sees passwords or sessions; authentication happens in
// whatever front end invokes it.
type CapabilityProvider interface {
	CapabilitiesOf(ctx context.Context, actor string) (CapabilitySet, error)
}
