package identity

import (
	"context"
	"fmt"

	"neofab/internal/config"
	"neofab/internal/core"
)

// Role is a named bundle of capabilities.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// roleCapabilities maps each role to its granted capability set. Plain users
// hold no capabilities; ownership rules in the engine still let them cancel
// their own work and post on their own threads.
var roleCapabilities = map[Role]core.CapabilitySet{
	RoleUser: {},
	RoleStaff: {
		core.CapReviewProject:  true,
		core.CapDecideProject:  true,
		core.CapProduceProject: true,
		core.CapCancelProject:  true,
		core.CapCreateJob:      true,
		core.CapScheduleJob:    true,
		core.CapOperateJob:     true,
		core.CapCancelJob:      true,
		core.CapPostMessage:    true,
	},
	RoleAdmin: {
		core.CapReviewProject:  true,
		core.CapDecideProject:  true,
		core.CapProduceProject: true,
		core.CapCancelProject:  true,
		core.CapCreateJob:      true,
		core.CapScheduleJob:    true,
		core.CapOperateJob:     true,
		core.CapCancelJob:      true,
		core.CapPostMessage:    true,
		core.CapManageCatalog:  true,
	},
}

// StaticProvider resolves capabilities from a fixed actor-to-role table
// loaded from configuration. Unknown actors get the default role.
type StaticProvider struct {
	defaultRole Role
	roles       map[string]Role
}

// NewStaticProvider builds a provider from identity configuration.
func NewStaticProvider(cfg config.IdentityConfig) (*StaticProvider, error) {
	defaultRole := Role(cfg.DefaultRole)
	if defaultRole == "" {
		defaultRole = RoleUser
	}
	if _, ok := roleCapabilities[defaultRole]; !ok {
		return nil, fmt.Errorf("unknown default role: %q", cfg.DefaultRole)
	}

	roles := make(map[string]Role, len(cfg.Actors))
	for _, a := range cfg.Actors {
		role := Role(a.Role)
		if _, ok := roleCapabilities[role]; !ok {
			return nil, fmt.Errorf("unknown role %q for actor %q", a.Role, a.ID)
		}
		roles[a.ID] = role
	}

	return &StaticProvider{defaultRole: defaultRole, roles: roles}, nil
}

// RoleOf returns the role assigned to actor.
func (p *StaticProvider) RoleOf(actor string) Role {
	if role, ok := p.roles[actor]; ok {
		return role
	}
	return p.defaultRole
}

// CapabilitiesOf resolves the capability set granted to actor.
func (p *StaticProvider) CapabilitiesOf(ctx context.Context, actor string) (core.CapabilitySet, error) {
	return roleCapabilities[p.RoleOf(actor)], nil
}

// Compile-time check that StaticProvider implements core.CapabilityProvider
var _ core.CapabilityProvider = (*StaticProvider)(nil)
