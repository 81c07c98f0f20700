package controllers

import (
	"net/http"
	"strings"

	"transfer-appeal-api/services"
	"transfer-appeal-api/workflow"

	"github.com/gin-gonic/gin"
)

type transitionRequest struct {
	Status         string  `json:"status" binding:"required"`
	Reason         string  `json:"reason"`
	ExpectedStatus *string `json:"expected_status"`
	Force          bool    `json:"force"`
}

// GET /api/v1/reviews
func ListReviewQueue(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	statuses, ok := queryStatuses(c, "status")
	if !ok {
		return
	}
	limit, offset := pageParams(c)

	specs, total, err := deps.Specs.ReviewQueue(c.Request.Context(), identity, statuses, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       specs,
		"pagination": pagination(limit, offset, total),
	})
}

// GET /api/v1/specs/:id/timeline
func GetSpecTimeline(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	timeline, err := deps.Workflow.GetTimeline(c.Request.Context(), identity, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": timeline})
}

// POST /api/v1/specs/:id/transition
func TransitionSpec(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	status, ok := workflow.ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown status " + req.Status, "field": "status"})
		return
	}
	decision := services.ReviewDecision{
		Status: status,
		Reason: strings.TrimSpace(req.Reason),
		Force:  req.Force,
	}
	if req.ExpectedStatus != nil {
		expected, ok := workflow.ParseStatus(*req.ExpectedStatus)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown status " + *req.ExpectedStatus, "field": "expected_status"})
			return
		}
		decision.ExpectedStatus = &expected
	}

	spec, err := deps.Workflow.ReviewTransition(c.Request.Context(), identity, id, decision)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"data":             spec,
		"status_label":     workflow.StatusLabel(spec.CurrentRequestStatus),
		"workflow_version": spec.WorkflowVersion,
	})
}

// GET /api/v1/labels
func GetLabels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"statuses": workflow.StatusLabels(),
		"actions":  workflow.ActionLabels(),
	})
}
