package model

import "time"

// ProjectStatus is the lifecycle state of a submitted print project.
type ProjectStatus string

const (
	ProjectSubmitted    ProjectStatus = "submitted"
	ProjectUnderReview  ProjectStatus = "under_review"
	ProjectApproved     ProjectStatus = "approved"
	ProjectInProduction ProjectStatus = "in_production"
	ProjectCompleted    ProjectStatus = "completed"
	ProjectRejected     ProjectStatus = "rejected"
	ProjectCancelled    ProjectStatus = "cancelled"
)

// PrintJobStatus is the lifecycle state of a schedulable print job.
type PrintJobStatus string

const (
	JobQueued    PrintJobStatus = "queued"
	JobScheduled PrintJobStatus = "scheduled"
	JobPrinting  PrintJobStatus = "printing"
	JobDone      PrintJobStatus = "done"
	JobFailed    PrintJobStatus = "failed"
	JobCancelled PrintJobStatus = "cancelled"
)

// SubjectType identifies which entity kind a Ref points at.
type SubjectType string

const (
	SubjectProject  SubjectType = "project"
	SubjectPrintJob SubjectType = "print_job"
)

// Ref identifies a project or print job.
type Ref struct {
	Type SubjectType `json:"type"`
	ID   string      `json:"id"`
}

func ProjectRef(id string) Ref  { return Ref{Type: SubjectProject, ID: id} }
func PrintJobRef(id string) Ref { return Ref{Type: SubjectPrintJob, ID: id} }

// AttachmentKind classifies an uploaded file.
type AttachmentKind string

const (
	KindModel AttachmentKind = "model" // STL, 3MF, ...
	KindGCode AttachmentKind = "gcode"
	KindImage AttachmentKind = "image"
	KindOther AttachmentKind = "other"
)

// SystemAuthor is the author reference on messages posted by the engine
// itself when a status transition is accepted.
const SystemAuthor = "system"

// Project is a submitted print request. Status is a materialized copy of the
// latest StatusEvent and is only ever written together with one. Version is
// bumped on every accepted transition and backs optimistic conflict checks.
type Project struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PrintJob is one schedulable unit of printing work under a project.
// Printer/material/color references stay empty until the job is scheduled.
type PrintJob struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"project_id"`
	PrinterID  string         `json:"printer_id,omitempty"`
	MaterialID string         `json:"material_id,omitempty"`
	ColorID    string         `json:"color_id,omitempty"`
	Status     PrintJobStatus `json:"status"`
	Priority   int            `json:"priority"`
	Deadline   *time.Time     `json:"deadline,omitempty"`
	Version    int64          `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Attachment is the metadata record for one upload. Distinct uploads of
// identical bytes each get their own Attachment but share one blob,
// reference-counted in the store.
type Attachment struct {
	ID           string         `json:"id"`
	Subject      Ref            `json:"subject"`
	Kind         AttachmentKind `json:"kind"`
	OriginalName string         `json:"original_name"`
	ContentHash  string         `json:"content_hash"` // SHA-256, also the blob store key
	Size         int64          `json:"size"`
	Quantity     int            `json:"quantity"` // copies to print, default 1
	Note         string         `json:"note,omitempty"`
	UploaderID   string         `json:"uploader_id"`
	UploadedAt   time.Time      `json:"uploaded_at"`
}

// Message is one entry in a project's conversation thread.
// StatusEventID is set only on system messages generated by a transition.
type Message struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	AuthorID      string    `json:"author_id"`
	Body          string    `json:"body"`
	StatusEventID string    `json:"status_event_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatusEvent records one accepted state transition. Events are append-only
// and are the source of truth for an entity's current status.
type StatusEvent struct {
	ID        string    `json:"id"`
	Subject   Ref       `json:"subject"`
	From      string    `json:"from,omitempty"` // empty on the creation event
	To        string    `json:"to"`
	ActorID   string    `json:"actor_id"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Master data referenced by print jobs.

type Printer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Model     string    `json:"model,omitempty"`
	Location  string    `json:"location,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Material struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Color struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	HexCode string `json:"hex_code,omitempty"` // e.g. "#FF0000"
}
