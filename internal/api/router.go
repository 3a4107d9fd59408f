package api

import (
	"github.com/gin-gonic/gin"

	"neofab/internal/core"
)

// SetupRouter builds the HTTP front end over the engine. The caller is the
// trusted authentication boundary: the acting user arrives in the X-Actor
// header and is treated as an opaque reference.
func SetupRouter(svc *core.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{svc: svc}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/projects", h.SubmitProject)
		v1.GET("/projects", h.ListProjects)
		v1.GET("/projects/:id", h.GetProject)
		v1.POST("/projects/:id/status", h.UpdateProjectStatus)
		v1.GET("/projects/:id/jobs", h.ListPrintJobs)
		v1.POST("/projects/:id/jobs", h.CreatePrintJob)
		v1.GET("/projects/:id/messages", h.ListMessages)
		v1.POST("/projects/:id/messages", h.PostMessage)
		v1.GET("/projects/:id/timeline", h.GetTimeline)
		v1.GET("/projects/:id/audit", h.GetAudit)
		v1.GET("/projects/:id/attachments", h.ListProjectAttachments)
		v1.POST("/projects/:id/attachments", h.AttachToProject)

		v1.GET("/print_jobs/:id", h.GetPrintJob)
		v1.POST("/print_jobs/:id/status", h.UpdatePrintJobStatus)
		v1.GET("/print_jobs/:id/attachments", h.ListPrintJobAttachments)
		v1.POST("/print_jobs/:id/attachments", h.AttachToPrintJob)

		v1.GET("/attachments/:id", h.GetAttachmentContent)

		v1.POST("/printers", h.CreatePrinter)
		v1.GET("/printers", h.ListPrinters)
		v1.POST("/materials", h.CreateMaterial)
		v1.GET("/materials", h.ListMaterials)
		v1.POST("/colors", h.CreateColor)
		v1.GET("/colors", h.ListColors)
	}

	return router
}
