package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"neofab/internal/model"
)

// DefaultMaxAttachmentSize bounds uploads when the config does not set one.
const DefaultMaxAttachmentSize int64 = 64 << 20 // 64 MiB

const notifyTimeout = 5 * time.Second

// Service is the domain engine coordinating the status engine, attachment
// manager, messaging thread and audit reader over the collaborator
// interfaces. It runs no background work; every operation completes within
// the caller's request.
type Service struct {
	store    Store
	blobs    BlobStore
	notifier Notifier
	caps     CapabilityProvider
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	maxSize  int64
}

// NewService creates a Service with the provided dependencies.
// maxAttachmentSize <= 0 selects DefaultMaxAttachmentSize.
func NewService(store Store, blobs BlobStore, notifier Notifier, caps CapabilityProvider, logger Logger, clock Clock, idgen IDGenerator, maxAttachmentSize int64) *Service {
	if maxAttachmentSize <= 0 {
		maxAttachmentSize = DefaultMaxAttachmentSize
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		store:    store,
		blobs:    blobs,
		notifier: notifier,
		caps:     caps,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		maxSize:  maxAttachmentSize,
	}
}

// SubmitProject creates a project in the Submitted state, recording the
// creation event and the initial system message atomically with it.
func (s *Service) SubmitProject(ctx context.Context, ownerID, title, description string) (*model.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("project title is required")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("project owner is required")
	}

	now := s.clock.Now()
	p := &model.Project{
		ID:          s.idgen.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Status:      model.ProjectSubmitted,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ev := &model.StatusEvent{
		ID:        s.idgen.New(),
		Subject:   model.ProjectRef(p.ID),
		From:      "",
		To:        string(model.ProjectSubmitted),
		ActorID:   ownerID,
		CreatedAt: now,
	}
	msg := s.systemMessage(p.ID, model.ProjectSubmitted, ev.ID, now)

	if err := s.store.CreateProject(ctx, p, ev, msg); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project submitted", "project", p.ID, "owner", ownerID)
	s.notify(Notification{
		Subject:    ev.Subject,
		Title:      p.Title,
		OwnerID:    p.OwnerID,
		To:         ev.To,
		ActorID:    ownerID,
		OccurredAt: now,
	})
	return p, nil
}

// RequestTransition validates and applies a status transition for the
// referenced entity. On success the new state, a StatusEvent and (for
// project transitions) a system message are committed atomically; the
// notification gateway is then called best-effort.
func (s *Service) RequestTransition(ctx context.Context, ref model.Ref, target string, actor, reason string) (*model.StatusEvent, error) {
	switch ref.Type {
	case model.SubjectProject:
		return s.transitionProject(ctx, ref.ID, model.ProjectStatus(target), actor, reason)
	case model.SubjectPrintJob:
		return s.transitionPrintJob(ctx, ref.ID, model.PrintJobStatus(target), actor, reason)
	default:
		return nil, fmt.Errorf("unknown subject type %q", ref.Type)
	}
}

func (s *Service) transitionProject(ctx context.Context, id string, target model.ProjectStatus, actor, reason string) (*model.StatusEvent, error) {
	if !ValidProjectStatus(target) {
		return nil, fmt.Errorf("status %q: %w", target, ErrIllegalTransition)
	}

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	rule, ok := projectRule(p.Status, target)
	if !ok {
		return nil, fmt.Errorf("project %s -> %s: %w", p.Status, target, ErrIllegalTransition)
	}
	if err := s.authorize(ctx, actor, rule, p.OwnerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ev := &model.StatusEvent{
		ID:        s.idgen.New(),
		Subject:   model.ProjectRef(p.ID),
		From:      string(p.Status),
		To:        string(target),
		ActorID:   actor,
		Reason:    reason,
		CreatedAt: now,
	}
	msg := s.systemMessage(p.ID, target, ev.ID, now)

	if err := s.store.ApplyProjectTransition(ctx, p.ID, p.Version, target, ev, msg); err != nil {
		return nil, fmt.Errorf("applying project transition: %w", err)
	}

	s.logger.Info("project status changed",
		"project", p.ID, "from", ev.From, "to", ev.To, "actor", actor)
	s.notify(Notification{
		Subject:    ev.Subject,
		Title:      p.Title,
		OwnerID:    p.OwnerID,
		From:       ev.From,
		To:         ev.To,
		ActorID:    actor,
		OccurredAt: now,
	})
	return ev, nil
}

func (s *Service) transitionPrintJob(ctx context.Context, id string, target model.PrintJobStatus, actor, reason string) (*model.StatusEvent, error) {
	if !ValidPrintJobStatus(target) {
		return nil, fmt.Errorf("status %q: %w", target, ErrIllegalTransition)
	}

	j, err := s.store.GetPrintJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading print job: %w", err)
	}

	rule, ok := printJobRule(j.Status, target)
	if !ok {
		return nil, fmt.Errorf("print job %s -> %s: %w", j.Status, target, ErrIllegalTransition)
	}

	p, err := s.store.GetProject(ctx, j.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading owning project: %w", err)
	}
	if err := s.authorize(ctx, actor, rule, p.OwnerID); err != nil {
		return nil, err
	}

	// Scheduling requires the owning project to have passed review.
	if j.Status == model.JobQueued && target == model.JobScheduled {
		if p.Status != model.ProjectApproved && p.Status != model.ProjectInProduction {
			return nil, fmt.Errorf("project %s is %s, not approved for production: %w",
				p.ID, p.Status, ErrIllegalTransition)
		}
	}

	now := s.clock.Now()
	ev := &model.StatusEvent{
		ID:        s.idgen.New(),
		Subject:   model.PrintJobRef(j.ID),
		From:      string(j.Status),
		To:        string(target),
		ActorID:   actor,
		Reason:    reason,
		CreatedAt: now,
	}

	if err := s.store.ApplyPrintJobTransition(ctx, j.ID, j.Version, target, ev); err != nil {
		return nil, fmt.Errorf("applying print job transition: %w", err)
	}

	s.logger.Info("print job status changed",
		"job", j.ID, "project", p.ID, "from", ev.From, "to", ev.To, "actor", actor)
	s.notify(Notification{
		Subject:    ev.Subject,
		Title:      p.Title,
		OwnerID:    p.OwnerID,
		From:       ev.From,
		To:         ev.To,
		ActorID:    actor,
		OccurredAt: now,
	})
	return ev, nil
}

// PrintJobSpec carries the optional scheduling details of a new print job.
type PrintJobSpec struct {
	PrinterID  string
	MaterialID string
	ColorID    string
	Priority   int
	Deadline   *time.Time
}

// CreatePrintJob creates a job in the Queued state under an approved
// project. Printer, material and color references are validated when set.
func (s *Service) CreatePrintJob(ctx context.Context, projectID, actor string, spec PrintJobSpec) (*model.PrintJob, error) {
	set, err := s.caps.CapabilitiesOf(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("resolving capabilities: %w", err)
	}
	if !set.Has(CapCreateJob) {
		return nil, fmt.Errorf("actor %s cannot create print jobs: %w", actor, ErrForbidden)
	}

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if p.Status != model.ProjectApproved && p.Status != model.ProjectInProduction {
		return nil, fmt.Errorf("project %s is %s, not approved for production: %w",
			p.ID, p.Status, ErrIllegalTransition)
	}

	if err := s.validateJobRefs(ctx, spec); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	j := &model.PrintJob{
		ID:         s.idgen.New(),
		ProjectID:  p.ID,
		PrinterID:  spec.PrinterID,
		MaterialID: spec.MaterialID,
		ColorID:    spec.ColorID,
		Status:     model.JobQueued,
		Priority:   spec.Priority,
		Deadline:   spec.Deadline,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ev := &model.StatusEvent{
		ID:        s.idgen.New(),
		Subject:   model.PrintJobRef(j.ID),
		From:      "",
		To:        string(model.JobQueued),
		ActorID:   actor,
		CreatedAt: now,
	}

	if err := s.store.CreatePrintJob(ctx, j, ev); err != nil {
		return nil, fmt.Errorf("creating print job: %w", err)
	}

	s.logger.Info("print job created", "job", j.ID, "project", p.ID, "actor", actor)
	return j, nil
}

func (s *Service) validateJobRefs(ctx context.Context, spec PrintJobSpec) error {
	if spec.PrinterID != "" {
		if _, err := s.store.GetPrinter(ctx, spec.PrinterID); err != nil {
			return fmt.Errorf("printer %s: %w", spec.PrinterID, err)
		}
	}
	if spec.MaterialID != "" {
		if _, err := s.store.GetMaterial(ctx, spec.MaterialID); err != nil {
			return fmt.Errorf("material %s: %w", spec.MaterialID, err)
		}
	}
	if spec.ColorID != "" {
		if _, err := s.store.GetColor(ctx, spec.ColorID); err != nil {
			return fmt.Errorf("color %s: %w", spec.ColorID, err)
		}
	}
	return nil
}

// AttachInput describes one upload.
type AttachInput struct {
	Subject  model.Ref
	Kind     model.AttachmentKind
	Name     string // original filename
	Content  []byte
	Uploader string
	Note     string
	Quantity int // copies to print; defaults to 1
}

// Attach validates and stores an upload. Content is addressed by SHA-256:
// the blob write is idempotent, and the metadata record plus the blob
// reference count are committed in one store transaction. Attaching never
// changes entity status.
func (s *Service) Attach(ctx context.Context, in AttachInput) (*model.Attachment, error) {
	if !ValidAttachmentKind(in.Kind) {
		return nil, fmt.Errorf("kind %q: %w", in.Kind, ErrUnsupportedKind)
	}
	if int64(len(in.Content)) > s.maxSize {
		return nil, fmt.Errorf("%d bytes exceeds limit of %d: %w", len(in.Content), s.maxSize, ErrTooLarge)
	}

	// Fail fast on a missing subject before touching the blob store.
	if err := s.subjectExists(ctx, in.Subject); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(in.Content)
	hash := hex.EncodeToString(sum[:])

	// Blob first, metadata second: the blob write is idempotent by key, so
	// if the metadata commit fails the worst outcome is an orphaned blob.
	if err := s.blobs.Put(ctx, hash, bytes.NewReader(in.Content), int64(len(in.Content))); err != nil {
		return nil, fmt.Errorf("storing blob: %w", errors.Join(ErrStorageFailure, err))
	}

	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	a := &model.Attachment{
		ID:           s.idgen.New(),
		Subject:      in.Subject,
		Kind:         in.Kind,
		OriginalName: in.Name,
		ContentHash:  hash,
		Size:         int64(len(in.Content)),
		Quantity:     quantity,
		Note:         in.Note,
		UploaderID:   in.Uploader,
		UploadedAt:   s.clock.Now(),
	}

	refs, err := s.store.CreateAttachment(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("recording attachment: %w", err)
	}
	if refs > 1 {
		s.logger.Debug("attachment content deduplicated", "hash", hash, "refs", refs)
	}

	s.logger.Info("attachment stored",
		"attachment", a.ID, "subject", in.Subject.ID, "kind", a.Kind, "size", a.Size)
	return a, nil
}

// OpenAttachment writes the content of the given attachment to w.
func (s *Service) OpenAttachment(ctx context.Context, id string, w io.Writer) (*model.Attachment, error) {
	a, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading attachment: %w", err)
	}
	if err := s.blobs.Get(ctx, a.ContentHash, w); err != nil {
		return nil, fmt.Errorf("reading blob: %w", errors.Join(ErrStorageFailure, err))
	}
	return a, nil
}

// PostMessage appends a user message to a project's thread. Only the
// project owner or an actor with CapPostMessage may post.
func (s *Service) PostMessage(ctx context.Context, projectID, author, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	if author != p.OwnerID {
		set, err := s.caps.CapabilitiesOf(ctx, author)
		if err != nil {
			return nil, fmt.Errorf("resolving capabilities: %w", err)
		}
		if !set.Has(CapPostMessage) {
			return nil, fmt.Errorf("actor %s cannot post on project %s: %w", author, projectID, ErrForbidden)
		}
	}

	m := &model.Message{
		ID:        s.idgen.New(),
		ProjectID: p.ID,
		AuthorID:  author,
		Body:      body,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	s.logger.Debug("message posted", "project", p.ID, "author", author)
	s.notify(Notification{
		Subject:    model.ProjectRef(p.ID),
		Title:      p.Title,
		OwnerID:    p.OwnerID,
		ActorID:    author,
		OccurredAt: m.CreatedAt,
	})
	return m, nil
}

// Read accessors.

func (s *Service) Project(ctx context.Context, id string) (*model.Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *Service) Projects(ctx context.Context, filter ProjectFilter) ([]*model.Project, error) {
	return s.store.ListProjects(ctx, filter)
}

func (s *Service) PrintJob(ctx context.Context, id string) (*model.PrintJob, error) {
	return s.store.GetPrintJob(ctx, id)
}

func (s *Service) PrintJobs(ctx context.Context, projectID string) ([]*model.PrintJob, error) {
	return s.store.ListPrintJobs(ctx, projectID)
}

func (s *Service) Attachments(ctx context.Context, subject model.Ref) ([]*model.Attachment, error) {
	return s.store.ListAttachments(ctx, subject)
}

func (s *Service) Messages(ctx context.Context, projectID string) ([]*model.Message, error) {
	return s.store.ListMessages(ctx, projectID)
}

// Master data. Mutations are gated on CapManageCatalog; reads are open.

func (s *Service) AddPrinter(ctx context.Context, actor string, p *model.Printer) error {
	if err := s.requireCap(ctx, actor, CapManageCatalog); err != nil {
		return err
	}
	p.ID = s.idgen.New()
	p.CreatedAt = s.clock.Now()
	return s.store.CreatePrinter(ctx, p)
}

func (s *Service) AddMaterial(ctx context.Context, actor string, m *model.Material) error {
	if err := s.requireCap(ctx, actor, CapManageCatalog); err != nil {
		return err
	}
	m.ID = s.idgen.New()
	return s.store.CreateMaterial(ctx, m)
}

func (s *Service) AddColor(ctx context.Context, actor string, c *model.Color) error {
	if err := s.requireCap(ctx, actor, CapManageCatalog); err != nil {
		return err
	}
	c.ID = s.idgen.New()
	return s.store.CreateColor(ctx, c)
}

func (s *Service) Printers(ctx context.Context) ([]*model.Printer, error) {
	return s.store.ListPrinters(ctx)
}

func (s *Service) Materials(ctx context.Context) ([]*model.Material, error) {
	return s.store.ListMaterials(ctx)
}

func (s *Service) Colors(ctx context.Context) ([]*model.Color, error) {
	return s.store.ListColors(ctx)
}

// authorize checks the actor against a transition rule: the required
// capability, or ownership when the rule allows it.
func (s *Service) authorize(ctx context.Context, actor string, rule transitionRule, ownerID string) error {
	if rule.ownerAllowed && actor == ownerID {
		return nil
	}
	set, err := s.caps.CapabilitiesOf(ctx, actor)
	if err != nil {
		return fmt.Errorf("resolving capabilities: %w", err)
	}
	if !set.Has(rule.capability) {
		return fmt.Errorf("actor %s lacks %s: %w", actor, rule.capability, ErrForbidden)
	}
	return nil
}

func (s *Service) requireCap(ctx context.Context, actor string, c Capability) error {
	set, err := s.caps.CapabilitiesOf(ctx, actor)
	if err != nil {
		return fmt.Errorf("resolving capabilities: %w", err)
	}
	if !set.Has(c) {
		return fmt.Errorf("actor %s lacks %s: %w", actor, c, ErrForbidden)
	}
	return nil
}

// systemMessage builds the thread entry for a transition into status, or
// nil when no template is defined.
func (s *Service) systemMessage(projectID string, status model.ProjectStatus, eventID string, at time.Time) *model.Message {
	body, ok := projectStatusMessages[status]
	if !ok {
		return nil
	}
	return &model.Message{
		ID:            s.idgen.New(),
		ProjectID:     projectID,
		AuthorID:      model.SystemAuthor,
		Body:          body,
		StatusEventID: eventID,
		CreatedAt:     at,
	}
}

func (s *Service) subjectExists(ctx context.Context, ref model.Ref) error {
	switch ref.Type {
	case model.SubjectProject:
		_, err := s.store.GetProject(ctx, ref.ID)
		return err
	case model.SubjectPrintJob:
		_, err := s.store.GetPrintJob(ctx, ref.ID)
		return err
	default:
		return fmt.Errorf("unknown subject type %q", ref.Type)
	}
}

// notify delivers a hint to the gateway. Delivery failure is logged and
// dropped; the transition that triggered it has already committed. A fresh
// context keeps the call off the caller's transaction deadline.
func (s *Service) notify(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("notification delivery failed",
			"subject", n.Subject.ID, "to", n.To, "error", err)
	}
}
