package core

import (
	"context"
	"fmt"

	"neofab/internal/model"
)

// Audit is the read-only projection over a project: current status
// snapshots plus the merged event/message timeline.
type Audit struct {
	Project   *model.Project    `json:"project"`
	PrintJobs []*model.PrintJob `json:"print_jobs"`
	Timeline  []TimelineEntry   `json:"timeline"`
}

// AuditSnapshot assembles the audit view of a project. It never mutates
// anything.
func (s *Service) AuditSnapshot(ctx context.Context, projectID string) (*Audit, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	jobs, err := s.store.ListPrintJobs(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing print jobs: %w", err)
	}
	events, err := s.store.ListStatusEvents(ctx, model.ProjectRef(projectID))
	if err != nil {
		return nil, fmt.Errorf("listing status events: %w", err)
	}
	messages, err := s.store.ListMessages(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	return &Audit{
		Project:   p,
		PrintJobs: jobs,
		Timeline:  mergeTimeline(events, messages),
	}, nil
}
