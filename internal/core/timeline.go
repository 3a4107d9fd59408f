package core

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"neofab/internal/model"
)

// TimelineEntry is one item of a project's merged history: exactly one of
// Event or Message is set.
type TimelineEntry struct {
	Time    time.Time          `json:"time"`
	ID      string             `json:"id"`
	Event   *model.StatusEvent `json:"event,omitempty"`
	Message *model.Message     `json:"message,omitempty"`
}

// Timeline returns the project's status events and messages merged into one
// sequence ordered by timestamp, ties broken by identifier. The sequence is
// finite and restartable; iterating it has no side effects.
func (s *Service) Timeline(ctx context.Context, projectID string) (iter.Seq[TimelineEntry], error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	events, err := s.store.ListStatusEvents(ctx, model.ProjectRef(projectID))
	if err != nil {
		return nil, fmt.Errorf("listing status events: %w", err)
	}
	messages, err := s.store.ListMessages(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	merged := mergeTimeline(events, messages)
	return func(yield func(TimelineEntry) bool) {
		for _, e := range merged {
			if !yield(e) {
				return
			}
		}
	}, nil
}

// mergeTimeline combines both streams, ordered by (timestamp, id).
func mergeTimeline(events []*model.StatusEvent, messages []*model.Message) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(events)+len(messages))
	for _, ev := range events {
		entries = append(entries, TimelineEntry{Time: ev.CreatedAt, ID: ev.ID, Event: ev})
	}
	for _, m := range messages {
		entries = append(entries, TimelineEntry{Time: m.CreatedAt, ID: m.ID, Message: m})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Time.Equal(entries[j].Time) {
			return entries[i].Time.Before(entries[j].Time)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
