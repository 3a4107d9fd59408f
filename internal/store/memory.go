package store

import (
	"fmt"
	"sort"
	"sync"

	"context"

	"neofab/internal/core"
	"neofab/internal/model"
)

// MemoryStore is an in-memory core.Store used by tests and by the
// memory backend. It honors the same atomicity and version semantics
// as the SQLite store.
type MemoryStore struct {
	mu          sync.Mutex
	projects    map[string]*model.Project
	printJobs   map[string]*model.PrintJob
	attachments map[string]*model.Attachment
	blobRefs    map[string]int64
	messages    []*model.Message
	events      []*model.StatusEvent
	printers    map[string]*model.Printer
	materials   map[string]*model.Material
	colors      map[string]*model.Color
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:    make(map[string]*model.Project),
		printJobs:   make(map[string]*model.PrintJob),
		attachments: make(map[string]*model.Attachment),
		blobRefs:    make(map[string]int64),
		printers:    make(map[string]*model.Printer),
		materials:   make(map[string]*model.Material),
		colors:      make(map[string]*model.Color),
	}
}

// Projects

func (s *MemoryStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListProjects(ctx context.Context, filter core.ProjectFilter) ([]*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.Project
	for _, p := range s.projects {
		if filter.OwnerID != "" && p.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) CreateProject(ctx context.Context, p *model.Project, ev *model.StatusEvent, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
	cev := *ev
	s.events = append(s.events, &cev)
	if msg != nil {
		cm := *msg
		s.messages = append(s.messages, &cm)
	}
	return nil
}

func (s *MemoryStore) ApplyProjectTransition(ctx context.Context, id string, expectedVersion int64, to model.ProjectStatus, ev *model.StatusEvent, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}
	if p.Version != expectedVersion {
		return fmt.Errorf("project %s at version %d: %w", id, expectedVersion, core.ErrConflict)
	}
	p.Status = to
	p.Version++
	p.UpdatedAt = ev.CreatedAt
	cev := *ev
	s.events = append(s.events, &cev)
	if msg != nil {
		cm := *msg
		s.messages = append(s.messages, &cm)
	}
	return nil
}

// Print jobs

func (s *MemoryStore) GetPrintJob(ctx context.Context, id string) (*model.PrintJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.printJobs[id]
	if !ok {
		return nil, fmt.Errorf("print job %s: %w", id, core.ErrNotFound)
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) ListPrintJobs(ctx context.Context, projectID string) ([]*model.PrintJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.PrintJob
	for _, j := range s.printJobs {
		if j.ProjectID != projectID {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) CreatePrintJob(ctx context.Context, j *model.PrintJob, ev *model.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *j
	s.printJobs[j.ID] = &cp
	cev := *ev
	s.events = append(s.events, &cev)
	return nil
}

func (s *MemoryStore) ApplyPrintJobTransition(ctx context.Context, id string, expectedVersion int64, to model.PrintJobStatus, ev *model.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.printJobs[id]
	if !ok {
		return fmt.Errorf("print job %s: %w", id, core.ErrNotFound)
	}
	if j.Version != expectedVersion {
		return fmt.Errorf("print job %s at version %d: %w", id, expectedVersion, core.ErrConflict)
	}
	j.Status = to
	j.Version++
	j.UpdatedAt = ev.CreatedAt
	cev := *ev
	s.events = append(s.events, &cev)
	return nil
}

// Attachments

func (s *MemoryStore) CreateAttachment(ctx context.Context, a *model.Attachment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch a.Subject.Type {
	case model.SubjectProject:
		if _, ok := s.projects[a.Subject.ID]; !ok {
			return 0, fmt.Errorf("project %s: %w", a.Subject.ID, core.ErrNotFound)
		}
	case model.SubjectPrintJob:
		if _, ok := s.printJobs[a.Subject.ID]; !ok {
			return 0, fmt.Errorf("print job %s: %w", a.Subject.ID, core.ErrNotFound)
		}
	}
	s.blobRefs[a.ContentHash]++
	cp := *a
	s.attachments[a.ID] = &cp
	return s.blobRefs[a.ContentHash], nil
}

func (s *MemoryStore) GetAttachment(ctx context.Context, id string) (*model.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attachments[id]
	if !ok {
		return nil, fmt.Errorf("attachment %s: %w", id, core.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAttachments(ctx context.Context, subject model.Ref) ([]*model.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.Attachment
	for _, a := range s.attachments {
		if a.Subject != subject {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UploadedAt.Equal(result[j].UploadedAt) {
			return result[i].UploadedAt.Before(result[j].UploadedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) BlobRefCount(ctx context.Context, hash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, ok := s.blobRefs[hash]
	if !ok {
		return 0, fmt.Errorf("blob %s: %w", hash, core.ErrNotFound)
	}
	return refs, nil
}

// Messages and status events

func (s *MemoryStore) CreateMessage(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, projectID string) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.Message
	for _, m := range s.messages {
		if m.ProjectID != projectID {
			continue
		}
		cp := *m
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) ListStatusEvents(ctx context.Context, subject model.Ref) ([]*model.StatusEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.StatusEvent
	for _, ev := range s.events {
		if ev.Subject != subject {
			continue
		}
		cp := *ev
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Master data

func (s *MemoryStore) CreatePrinter(ctx context.Context, p *model.Printer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.printers[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPrinter(ctx context.Context, id string) (*model.Printer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.printers[id]
	if !ok {
		return nil, fmt.Errorf("printer %s: %w", id, core.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPrinters(ctx context.Context) ([]*model.Printer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.Printer
	for _, p := range s.printers {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemoryStore) CreateMaterial(ctx context.Context, m *model.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.materials[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMaterial(ctx context.Context, id string) (*model.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		return nil, fmt.Errorf("material %s: %w", id, core.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ListMaterials(ctx context.Context) ([]*model.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.Material
	for _, m := range s.materials {
		cp := *m
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemoryStore) CreateColor(ctx context.Context, c *model.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.colors[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetColor(ctx context.Context, id string) (*model.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colors[id]
	if !ok {
		return nil, fmt.Errorf("color %s: %w", id, core.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListColors(ctx context.Context) ([]*model.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.Color
	for _, c := range s.colors {
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ core.Store = (*MemoryStore)(nil)
