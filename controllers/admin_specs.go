package controllers

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"transfer-appeal-api/services"

	"github.com/gin-gonic/gin"
)

const maxImportBytes = 20 * 1024 * 1024

func specFilter(c *gin.Context) (services.SpecFilter, bool) {
	statuses, ok := queryStatuses(c, "status")
	if !ok {
		return services.SpecFilter{}, false
	}
	limit, offset := pageParams(c)
	return services.SpecFilter{
		Statuses:                statuses,
		SourceDistrictCodes:     queryList(c, "source_district_code"),
		DestinationDistrictCode: strings.TrimSpace(c.Query("destination_district_code")),
		Search:                  c.Query("search"),
		Limit:                   limit,
		Offset:                  offset,
	}, true
}

// GET /api/v1/admin/specs
func AdminListSpecs(c *gin.Context) {
	filter, ok := specFilter(c)
	if !ok {
		return
	}
	specs, total, err := deps.Specs.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       specs,
		"pagination": pagination(filter.Limit, filter.Offset, total),
	})
}

// POST /api/v1/admin/specs
func AdminCreateSpec(c *gin.Context) {
	var in services.SpecInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	spec, err := deps.Specs.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": spec})
}

// GET /api/v1/admin/specs/:id
func AdminGetSpec(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	spec, err := deps.Specs.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": spec})
}

// PUT /api/v1/admin/specs/:id
func AdminUpdateSpec(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in services.SpecInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	spec, err := deps.Specs.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": spec})
}

// DELETE /api/v1/admin/specs/:id
func AdminDeleteSpec(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := deps.Specs.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Record deleted"})
}

// POST /api/v1/admin/specs/import
func AdminImportSpecs(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "Import file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		badRequest(c, "Only .xlsx files are supported")
		return
	}
	if header.Size > maxImportBytes {
		badRequest(c, "Import file exceeds 20MB")
		return
	}
	dryRun, _ := strconv.ParseBool(c.DefaultPostForm("dry_run", "false"))

	summary, err := deps.Imports.Import(c.Request.Context(), file, header.Filename, "admin_api", dryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

// GET /api/v1/admin/specs/export
func AdminExportSpecs(c *gin.Context) {
	filter, ok := specFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := deps.Imports.ExportSpecs(c.Request.Context(), &buf, filter); err != nil {
		respondError(c, err)
		return
	}
	sendXLSX(c, "specs", buf.Bytes())
}

// GET /api/v1/admin/import-runs
func AdminListImportRuns(c *gin.Context) {
	limit, offset := pageParams(c)
	runs, total, err := deps.Imports.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       runs,
		"pagination": pagination(limit, offset, total),
	})
}

// GET /api/v1/admin/import-runs/:id
func AdminGetImportRun(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	run, err := deps.Imports.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": run})
}
