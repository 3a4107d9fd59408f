package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"neofab/internal/core"
	"neofab/internal/model"
)

// actorHeader carries the acting user's opaque reference. Authentication is
// the deployment's concern (reverse proxy, gateway); the engine only needs
// the reference.
const actorHeader = "X-Actor"

// Handler bundles the HTTP handlers over one engine instance.
type Handler struct {
	svc *core.Service
}

func actor(c *gin.Context) string {
	return c.GetHeader(actorHeader)
}

// writeError maps engine errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrIllegalTransition),
		errors.Is(err, core.ErrUnsupportedKind),
		errors.Is(err, core.ErrEmptyMessage):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Projects

type submitProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) SubmitProject(c *gin.Context) {
	var req submitProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.svc.SubmitProject(c.Request.Context(), actor(c), req.Title, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListProjects(c *gin.Context) {
	filter := core.ProjectFilter{
		OwnerID: c.Query("owner"),
		Status:  model.ProjectStatus(c.Query("status")),
	}
	projects, err := h.svc.Projects(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) GetProject(c *gin.Context) {
	p, err := h.svc.Project(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (h *Handler) UpdateProjectStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.svc.RequestTransition(c.Request.Context(),
		model.ProjectRef(c.Param("id")), req.Status, actor(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// Print jobs

type createPrintJobRequest struct {
	PrinterID  string     `json:"printer_id"`
	MaterialID string     `json:"material_id"`
	ColorID    string     `json:"color_id"`
	Priority   int        `json:"priority"`
	Deadline   *time.Time `json:"deadline"`
}

func (h *Handler) CreatePrintJob(c *gin.Context) {
	var req createPrintJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	j, err := h.svc.CreatePrintJob(c.Request.Context(), c.Param("id"), actor(c), core.PrintJobSpec{
		PrinterID:  req.PrinterID,
		MaterialID: req.MaterialID,
		ColorID:    req.ColorID,
		Priority:   req.Priority,
		Deadline:   req.Deadline,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

func (h *Handler) ListPrintJobs(c *gin.Context) {
	jobs, err := h.svc.PrintJobs(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) GetPrintJob(c *gin.Context) {
	j, err := h.svc.PrintJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *Handler) UpdatePrintJobStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.svc.RequestTransition(c.Request.Context(),
		model.PrintJobRef(c.Param("id")), req.Status, actor(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// Messages and timeline

type postMessageRequest struct {
	Body string `json:"body"`
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.svc.PostMessage(c.Request.Context(), c.Param("id"), actor(c), req.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMessages(c *gin.Context) {
	messages, err := h.svc.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *Handler) GetTimeline(c *gin.Context) {
	seq, err := h.svc.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	entries := []core.TimelineEntry{}
	for entry := range seq {
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetAudit(c *gin.Context) {
	audit, err := h.svc.AuditSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}

// Attachments

func (h *Handler) AttachToProject(c *gin.Context) {
	h.attach(c, model.ProjectRef(c.Param("id")))
}

func (h *Handler) AttachToPrintJob(c *gin.Context) {
	h.attach(c, model.PrintJobRef(c.Param("id")))
}

func (h *Handler) attach(c *gin.Context, subject model.Ref) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quantity := 0
	if q := c.PostForm("quantity"); q != "" {
		quantity, err = strconv.Atoi(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
			return
		}
	}

	a, err := h.svc.Attach(c.Request.Context(), core.AttachInput{
		Subject:  subject,
		Kind:     model.AttachmentKind(c.PostForm("kind")),
		Name:     fh.Filename,
		Content:  content,
		Uploader: actor(c),
		Note:     c.PostForm("note"),
		Quantity: quantity,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListProjectAttachments(c *gin.Context) {
	h.listAttachments(c, model.ProjectRef(c.Param("id")))
}

func (h *Handler) ListPrintJobAttachments(c *gin.Context) {
	h.listAttachments(c, model.PrintJobRef(c.Param("id")))
}

func (h *Handler) listAttachments(c *gin.Context, subject model.Ref) {
	attachments, err := h.svc.Attachments(c.Request.Context(), subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attachments)
}

func (h *Handler) GetAttachmentContent(c *gin.Context) {
	var buf bytes.Buffer
	a, err := h.svc.OpenAttachment(c.Request.Context(), c.Param("id"), &buf)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+a.OriginalName+`"`)
	c.Data(http.StatusOK, "application/octet-stream", buf.Bytes())
}

// Master data

func (h *Handler) CreatePrinter(c *gin.Context) {
	var p model.Printer
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AddPrinter(c.Request.Context(), actor(c), &p); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPrinters(c *gin.Context) {
	printers, err := h.svc.Printers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, printers)
}

func (h *Handler) CreateMaterial(c *gin.Context) {
	var m model.Material
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AddMaterial(c.Request.Context(), actor(c), &m); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMaterials(c *gin.Context) {
	materials, err := h.svc.Materials(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, materials)
}

func (h *Handler) CreateColor(c *gin.Context) {
	var col model.Color
	if err := c.ShouldBindJSON(&col); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AddColor(c.Request.Context(), actor(c), &col); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, col)
}

func (h *Handler) ListColors(c *gin.Context) {
	colors, err := h.svc.Colors(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, colors)
}
