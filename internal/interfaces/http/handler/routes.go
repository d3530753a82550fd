package handler

import (
	"github.com/Ayash13/tulip-sub000/internal/interfaces/http/middleware"
	"github.com/Ayash13/tulip-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// LetterRoutes creates the route group for letter requests and print sessions
func LetterRoutes(letters *LetterHandler, prints *PrintSessionHandler, mw ...gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("letters", "/letters")
	group.Use(mw...)
	document := middleware.SandboxedDocument()

	group.GET("/types", letters.ListTypes).Describe("List letter types")
	group.GET("/types/:type/next-number", letters.NextNumber).Describe("Peek the next letter number")

	group.POST("/preview", letters.Preview).Describe("Assemble a preview")
	group.POST("/preview/render", document, letters.PreviewRender).Describe("Assemble a preview as a sandboxed page")

	group.POST("/requests", letters.Submit).Describe("Submit a letter request")
	group.GET("/requests", letters.List).Describe("List letter requests by status")
	group.GET("/requests/:id", letters.Get).Describe("Get a letter request")
	group.POST("/requests/:id/approve", letters.Approve).Describe("Approve and number a request")
	group.POST("/requests/:id/reject", letters.Reject).Describe("Reject a request")
	group.GET("/requests/:id/document", document, letters.Document).Describe("Final document of an approved request")
	group.POST("/requests/:id/uploads", letters.RequestUpload).Describe("Presign a signature or photo upload")

	if prints != nil {
		sessions := group.Group("print-sessions", "/print-sessions")
		sessions.POST("", prints.Open).Describe("Open a preview or print session")
		sessions.GET("/:id", prints.Status).Describe("Print session state")
		sessions.POST("/:id/retry", prints.Retry).Describe("Retry a failed session")
		sessions.GET("/:id/page", document, prints.Page).Describe("Sandboxed page of a session")
		sessions.DELETE("/:id", prints.Close).Describe("Close a session")
	}

	return group
}

// SystemRoutes creates the versioned system group
func SystemRoutes(h *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/system")
	group.GET("/info", h.GetSystemInfo)
	return group
}

// HealthRoutes creates the unversioned health endpoint
func HealthRoutes(h *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("health", "")
	group.GET("/health", h.Health)
	return group
}
