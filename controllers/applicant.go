package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"transfer-appeal-api/services"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/me/spec
func GetMySpec(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	spec, err := deps.Specs.GetByPersonnelCode(c.Request.Context(), identity.PersonnelCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": spec})
}

// GET /api/v1/me/timeline
func GetMyTimeline(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	spec, err := deps.Specs.GetByPersonnelCode(c.Request.Context(), identity.PersonnelCode)
	if err != nil {
		respondError(c, err)
		return
	}
	timeline, err := deps.Workflow.GetTimeline(c.Request.Context(), identity, spec.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": timeline})
}

// POST /api/v1/me/appeal/draft
func StartAppealDraft(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	draft, err := deps.Drafts.Start(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": draft})
}

// GET /api/v1/me/appeal/draft
func GetAppealDraft(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	draft, err := deps.Drafts.Get(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": draft})
}

// PUT /api/v1/me/appeal/draft/:id
func SaveAppealDraft(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var req services.DraftUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	draft, err := deps.Drafts.Save(c.Request.Context(), identity, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": draft})
}

// DELETE /api/v1/me/appeal/draft/:id
func DiscardAppealDraft(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	if err := deps.Drafts.Discard(c.Request.Context(), identity, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Draft discarded"})
}

// POST /api/v1/me/appeal/draft/:id/submit
func SubmitAppealDraft(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	result, err := deps.Drafts.Submit(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// POST /api/v1/me/files
func UploadAttachment(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "File is required")
		return
	}
	defer file.Close()

	stored, err := deps.Files.Store(c.Request.Context(), file, services.FileMeta{
		OriginalName: header.Filename,
		OwnerID:      identity.UserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": stored})
}

// GET /api/v1/files/*handle
func DownloadAttachment(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	handle := strings.TrimPrefix(c.Param("handle"), "/")

	rc, file, err := deps.Files.Retrieve(c.Request.Context(), handle)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	if !services.CanAccessFile(identity, file) {
		respondError(c, services.ErrUnauthorized)
		return
	}

	disposition := fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(file.OriginalName))
	c.DataFromReader(http.StatusOK, file.FileSize, file.MimeType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}
