package core

import "neofab/internal/model"

// Capability names one class of privileged action. Every legal transition
// maps to exactly one required capability, checked in RequestTransition
// rather than at call sites.
type Capability string

const (
	CapReviewProject  Capability = "project.review"  // Submitted -> UnderReview
	CapDecideProject  Capability = "project.decide"  // UnderReview -> Approved/Rejected
	CapProduceProject Capability = "project.produce" // Approved -> InProduction -> Completed
	CapCancelProject  Capability = "project.cancel"
	CapCreateJob      Capability = "job.create"
	CapScheduleJob    Capability = "job.schedule" // Queued -> Scheduled, Failed -> Queued
	CapOperateJob     Capability = "job.operate"  // Scheduled/Printing progress and failures
	CapCancelJob      Capability = "job.cancel"
	CapPostMessage    Capability = "project.message" // owner may always post on own project
	CapManageCatalog  Capability = "catalog.manage"
)

// CapabilitySet is the set of capabilities granted to one actor.
type CapabilitySet map[Capability]bool

func (s CapabilitySet) Has(c Capability) bool { return s[c] }

// transitionRule describes one edge of the transition table. ownerAllowed
// lets the owning user perform the transition without the capability
// (cancellation is owner-or-staff).
type transitionRule struct {
	capability   Capability
	ownerAllowed bool
}

// projectTransitions is the fixed, total transition table for projects.
// A (from, to) pair absent from the table is illegal; terminal states have
// no entry at all.
var projectTransitions = map[model.ProjectStatus]map[model.ProjectStatus]transitionRule{
	model.ProjectSubmitted: {
		model.ProjectUnderReview: {capability: CapReviewProject},
		model.ProjectRejected:    {capability: CapDecideProject},
		model.ProjectCancelled:   {capability: CapCancelProject, ownerAllowed: true},
	},
	model.ProjectUnderReview: {
		model.ProjectApproved:  {capability: CapDecideProject},
		model.ProjectRejected:  {capability: CapDecideProject},
		model.ProjectCancelled: {capability: CapCancelProject, ownerAllowed: true},
	},
	model.ProjectApproved: {
		model.ProjectInProduction: {capability: CapProduceProject},
		model.ProjectCancelled:    {capability: CapCancelProject, ownerAllowed: true},
	},
	model.ProjectInProduction: {
		model.ProjectCompleted: {capability: CapProduceProject},
		model.ProjectCancelled: {capability: CapCancelProject, ownerAllowed: true},
	},
}

// printJobTransitions is the fixed transition table for print jobs.
var printJobTransitions = map[model.PrintJobStatus]map[model.PrintJobStatus]transitionRule{
	model.JobQueued: {
		model.JobScheduled: {capability: CapScheduleJob},
		model.JobCancelled: {capability: CapCancelJob, ownerAllowed: true},
	},
	model.JobScheduled: {
		model.JobPrinting:  {capability: CapOperateJob},
		model.JobFailed:    {capability: CapOperateJob},
		model.JobCancelled: {capability: CapCancelJob, ownerAllowed: true},
	},
	model.JobPrinting: {
		model.JobDone:      {capability: CapOperateJob},
		model.JobFailed:    {capability: CapOperateJob},
		model.JobCancelled: {capability: CapCancelJob, ownerAllowed: true},
	},
	model.JobFailed: {
		model.JobQueued:    {capability: CapScheduleJob}, // retry
		model.JobCancelled: {capability: CapCancelJob, ownerAllowed: true},
	},
}

func projectRule(from, to model.ProjectStatus) (transitionRule, bool) {
	rule, ok := projectTransitions[from][to]
	return rule, ok
}

func printJobRule(from, to model.PrintJobStatus) (transitionRule, bool) {
	rule, ok := printJobTransitions[from][to]
	return rule, ok
}

// ValidProjectStatus reports whether s names a known project status.
func ValidProjectStatus(s model.ProjectStatus) bool {
	switch s {
	case model.ProjectSubmitted, model.ProjectUnderReview, model.ProjectApproved,
		model.ProjectInProduction, model.ProjectCompleted, model.ProjectRejected,
		model.ProjectCancelled:
		return true
	}
	return false
}

// ValidPrintJobStatus reports whether s names a known print job status.
func ValidPrintJobStatus(s model.PrintJobStatus) bool {
	switch s {
	case model.JobQueued, model.JobScheduled, model.JobPrinting,
		model.JobDone, model.JobFailed, model.JobCancelled:
		return true
	}
	return false
}

// ValidAttachmentKind reports whether k is an allowed attachment kind.
func ValidAttachmentKind(k model.AttachmentKind) bool {
	switch k {
	case model.KindModel, model.KindGCode, model.KindImage, model.KindOther:
		return true
	}
	return false
}

// projectStatusMessages are the system-message templates appended to the
// project thread when a transition into the given status is accepted.
var projectStatusMessages = map[model.ProjectStatus]string{
	model.ProjectSubmitted:    "Project submitted.",
	model.ProjectUnderReview:  "Project is under review.",
	model.ProjectApproved:     "Project approved.",
	model.ProjectInProduction: "Project moved to production.",
	model.ProjectCompleted:    "Project completed.",
	model.ProjectRejected:     "Project rejected.",
	model.ProjectCancelled:    "Project cancelled.",
}
