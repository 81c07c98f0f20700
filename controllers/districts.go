package controllers

import (
	"net/http"
	"strings"

	"transfer-appeal-api/models"
	"transfer-appeal-api/services"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/districts
func ListDistricts(c *gin.Context) {
	districts, err := deps.Districts.FindMany(c.Request.Context(), services.DistrictFilter{
		ProvinceCode: strings.TrimSpace(c.Query("province_code")),
		Codes:        queryList(c, "code"),
		ActiveOnly:   c.DefaultQuery("active", "true") != "false",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": districts})
}

// GET /api/v1/districts/:code
func GetDistrict(c *gin.Context) {
	district, err := deps.Districts.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": district})
}

// PUT /api/v1/admin/districts
func AdminUpsertDistricts(c *gin.Context) {
	var districts []models.District
	if err := c.ShouldBindJSON(&districts); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := deps.Districts.Upsert(c.Request.Context(), districts); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(districts)})
}
