package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"transfer-appeal-api/middleware"
	"transfer-appeal-api/services"
	"transfer-appeal-api/workflow"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to status codes.
func respondError(c *gin.Context, err error) {
	var ve *services.ValidationError
	var cm *services.ConcurrentModificationError

	switch {
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Access denied"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrSpecImportRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &cm):
		c.JSON(http.StatusConflict, gin.H{
			"success":        false,
			"error":          "The record was changed by someone else, reload and try again",
			"current_status": cm.Actual,
		})
	case errors.Is(err, services.ErrDuplicatePersonnelCode), errors.Is(err, services.ErrImportInProgress):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &ve):
		body := gin.H{"success": false, "error": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		c.JSON(http.StatusBadRequest, body)
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// identityOrAbort returns the caller or writes 401.
func identityOrAbort(c *gin.Context) (*services.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
		return nil, false
	}
	return identity, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func pagination(limit, offset int, total int64) gin.H {
	return gin.H{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": int64(offset+limit) < total,
		"has_prev": offset > 0,
	}
}

// queryList reads a repeated or comma separated query parameter.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// queryStatuses parses status filters, accepting legacy spellings.
func queryStatuses(c *gin.Context, key string) ([]workflow.RequestStatus, bool) {
	raw := queryList(c, key)
	out := make([]workflow.RequestStatus, 0, len(raw))
	for _, r := range raw {
		status, ok := workflow.ParseStatus(r)
		if !ok {
			badRequest(c, "Unknown status "+r)
			return nil, false
		}
		out = append(out, status)
	}
	return out, true
}
