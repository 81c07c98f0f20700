package routes

import (
	"net/http"

	"transfer-appeal-api/controllers"
	"transfer-appeal-api/middleware"
	"transfer-appeal-api/services"

	"github.com/gin-gonic/gin"
)

var reviewerRoles = []services.Role{
	services.RoleDistrictExpert,
	services.RoleProvinceExpert,
	services.RoleDestinationExpert,
	services.RoleAdmin,
}

// SetupRoutes mounts the /api/v1 API. Health and metrics are mounted by the
// monitor package.
func SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		// Public routes
		v1.GET("/labels", controllers.GetLabels)

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(""))
		{
			protected.GET("/files/*handle", controllers.DownloadAttachment)

			districts := protected.Group("/districts")
			{
				districts.GET("", controllers.ListDistricts)
				districts.GET("/:code", controllers.GetDistrict)
			}

			// Applicant self-service
			me := protected.Group("/me")
			me.Use(middleware.RequireRole(services.RoleApplicant))
			{
				me.GET("/spec", controllers.GetMySpec)
				me.GET("/timeline", controllers.GetMyTimeline)
				me.POST("/files", controllers.UploadAttachment)

				draft := me.Group("/appeal/draft")
				{
					draft.POST("", controllers.StartAppealDraft)
					draft.GET("", controllers.GetAppealDraft)
					draft.PUT("/:id", controllers.SaveAppealDraft)
					draft.DELETE("/:id", controllers.DiscardAppealDraft)
					draft.POST("/:id/submit", controllers.SubmitAppealDraft)
				}
			}

			// Review workflow
			reviewers := middleware.RequireRole(reviewerRoles...)
			protected.GET("/reviews", reviewers, controllers.ListReviewQueue)
			specs := protected.Group("/specs/:id")
			specs.Use(reviewers)
			{
				specs.GET("/timeline", controllers.GetSpecTimeline)
				specs.POST("/transition", controllers.TransitionSpec)
			}

			statistics := protected.Group("/statistics")
			statistics.Use(middleware.RequireRole(services.RoleDistrictExpert, services.RoleProvinceExpert, services.RoleAdmin))
			{
				statistics.GET("", controllers.GetStatistics)
				statistics.GET("/export", controllers.ExportStatistics)
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(services.RoleAdmin))
			{
				admin.GET("/specs", controllers.AdminListSpecs)
				admin.POST("/specs", controllers.AdminCreateSpec)
				admin.POST("/specs/import", controllers.AdminImportSpecs)
				admin.GET("/specs/export", controllers.AdminExportSpecs)
				admin.GET("/specs/:id", controllers.AdminGetSpec)
				admin.PUT("/specs/:id", controllers.AdminUpdateSpec)
				admin.DELETE("/specs/:id", controllers.AdminDeleteSpec)
				admin.GET("/import-runs", controllers.AdminListImportRuns)
				admin.GET("/import-runs/:id", controllers.AdminGetImportRun)
				admin.PUT("/districts", controllers.AdminUpsertDistricts)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Route not found"})
	})
}
