package testutil

import (
	"context"

	"neofab/internal/core"
)

// StubCapabilityProvider grants a fixed capability set per actor.
// Actors without an entry get no capabilities.
type StubCapabilityProvider struct {
	Grants map[string]core.CapabilitySet
}

// NewStubCapabilityProvider creates an empty provider.
func NewStubCapabilityProvider() *StubCapabilityProvider {
	return &StubCapabilityProvider{Grants: make(map[string]core.CapabilitySet)}
}

// Grant gives actor the listed capabilities, replacing earlier grants.
func (p *StubCapabilityProvider) Grant(actor string, caps ...core.Capability) {
	set := make(core.CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	p.Grants[actor] = set
}

// GrantStaff gives actor every capability except catalog management.
func (p *StubCapabilityProvider) GrantStaff(actor string) {
	p.Grant(actor,
		core.CapReviewProject, core.CapDecideProject, core.CapProduceProject,
		core.CapCancelProject, core.CapCreateJob, core.CapScheduleJob,
		core.CapOperateJob, core.CapCancelJob, core.CapPostMessage)
}

// GrantAdmin gives actor every capability.
func (p *StubCapabilityProvider) GrantAdmin(actor string) {
	p.GrantStaff(actor)
	set := p.Grants[actor]
	set[core.CapManageCatalog] = true
}

func (p *StubCapabilityProvider) CapabilitiesOf(ctx context.Context, actor string) (core.CapabilitySet, error) {
	return p.Grants[actor], nil
}

var _ core.CapabilityProvider = (*StubCapabilityProvider)(nil)
