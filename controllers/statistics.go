package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"transfer-appeal-api/services"
	"transfer-appeal-api/utils"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func statisticsFilter(c *gin.Context) (services.StatisticsFilter, bool) {
	statuses, ok := queryStatuses(c, "status")
	if !ok {
		return services.StatisticsFilter{}, false
	}
	return services.StatisticsFilter{
		ProvinceCode:  strings.TrimSpace(c.Query("province_code")),
		DistrictCodes: queryList(c, "district_code"),
		Statuses:      statuses,
	}, true
}

// GET /api/v1/statistics
func GetStatistics(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	filter, ok := statisticsFilter(c)
	if !ok {
		return
	}
	stats, err := deps.Statistics.Compute(c.Request.Context(), identity, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// GET /api/v1/statistics/export
func ExportStatistics(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	filter, ok := statisticsFilter(c)
	if !ok {
		return
	}
	stats, err := deps.Statistics.Compute(c.Request.Context(), identity, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.ExportStatistics(&buf, stats); err != nil {
		respondError(c, err)
		return
	}
	sendXLSX(c, "statistics", buf.Bytes())
}

func sendXLSX(c *gin.Context, prefix string, data []byte) {
	name := fmt.Sprintf("%s-%s.xlsx", prefix, strings.ReplaceAll(utils.FormatJalaliNumeric(time.Now()), "/", "-"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}
