package core

import (
	"context"

	"neofab/internal/model"
)

// ProjectFilter narrows ListProjects. Zero fields match everything.
type ProjectFilter struct {
	OwnerID string
	Status  model.ProjectStatus
}

// Store is the entity store consumed by the engine. Implementations must
// execute each multi-record method as one atomic unit: the entity write,
// its status event and any system message commit or fail together.
//
// Apply* methods take the version the caller read; a mismatch means a
// concurrent writer won and must surface as ErrConflict. Lookups of missing
// entities return ErrNotFound. Backend outages map to ErrStorageFailure and
// exceeded deadlines to ErrTimeout, wrapped so errors.Is works.
type Store interface {
	// Projects
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*model.Project, error)
	// CreateProject atomically writes the project, its creation event and
	// the initial system message.
	CreateProject(ctx context.Context, p *model.Project, ev *model.StatusEvent, msg *model.Message) error
	// ApplyProjectTransition updates status and bumps version iff the stored
	// version equals expectedVersion, recording ev and, when non-nil, msg.
	ApplyProjectTransition(ctx context.Context, id string, expectedVersion int64, to model.ProjectStatus, ev *model.StatusEvent, msg *model.Message) error

	// Print jobs
	GetPrintJob(ctx context.Context, id string) (*model.PrintJob, error)
	ListPrintJobs(ctx context.Context, projectID string) ([]*model.PrintJob, error)
	CreatePrintJob(ctx context.Context, j *model.PrintJob, ev *model.StatusEvent) error
	ApplyPrintJobTransition(ctx context.Context, id string, expectedVersion int64, to model.PrintJobStatus, ev *model.StatusEvent) error

	// Attachments. CreateAttachment verifies the subject exists, records the
	// metadata row and atomically increments (or creates) the blob reference
	// count for a.ContentHash, returning the count after the increment.
	CreateAttachment(ctx context.Context, a *model.Attachment) (refCount int64, err error)
	GetAttachment(ctx context.Context, id string) (*model.Attachment, error)
	ListAttachments(ctx context.Context, subject model.Ref) ([]*model.Attachment, error)
	BlobRefCount(ctx context.Context, hash string) (int64, error)

	// Messages and events
	CreateMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, projectID string) ([]*model.Message, error)
	ListStatusEvents(ctx context.Context, subject model.Ref) ([]*model.StatusEvent, error)

	// Master data
	CreatePrinter(ctx context.Context, p *model.Printer) error
	GetPrinter(ctx context.Context, id string) (*model.Printer, error)
	ListPrinters(ctx context.Context) ([]*model.Printer, error)
	CreateMaterial(ctx context.Context, m *model.Material) error
	GetMaterial(ctx context.Context, id string) (*model.Material, error)
	ListMaterials(ctx context.Context) ([]*model.Material, error)
	CreateColor(ctx context.Context, c *model.Color) error
	GetColor(ctx context.Context, id string) (*model.Color, error)
	ListColors(ctx context.Context) ([]*model.Color, error)

	Close() error
}
