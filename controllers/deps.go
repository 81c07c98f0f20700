package controllers

import (
	"context"
	"io"

	"transfer-appeal-api/config"
	"transfer-appeal-api/models"
	"transfer-appeal-api/services"
	"transfer-appeal-api/workflow"

	"gorm.io/gorm"
)

// WorkflowAPI is what the handlers need from services.WorkflowService.
type WorkflowAPI interface {
	GetTimeline(ctx context.Context, identity *services.Identity, specID uint) (*services.Timeline, error)
	ReviewTransition(ctx context.Context, identity *services.Identity, specID uint, decision services.ReviewDecision) (*models.TransferApplicantSpec, error)
}

// SpecAPI is what the handlers need from services.TransferSpecService.
type SpecAPI interface {
	Create(ctx context.Context, in services.SpecInput) (*models.TransferApplicantSpec, error)
	Get(ctx context.Context, id uint) (*models.TransferApplicantSpec, error)
	GetByPersonnelCode(ctx context.Context, code string) (*models.TransferApplicantSpec, error)
	List(ctx context.Context, filter services.SpecFilter) ([]models.TransferApplicantSpec, int64, error)
	ReviewQueue(ctx context.Context, identity *services.Identity, statuses []workflow.RequestStatus, limit, offset int) ([]models.TransferApplicantSpec, int64, error)
	Update(ctx context.Context, id uint, in services.SpecInput) (*models.TransferApplicantSpec, error)
	Delete(ctx context.Context, id uint) error
}

// DraftAPI is what the handlers need from services.DraftService.
type DraftAPI interface {
	Start(ctx context.Context, identity *services.Identity) (*models.AppealDraft, error)
	Get(ctx context.Context, identity *services.Identity) (*models.AppealDraft, error)
	Save(ctx context.Context, identity *services.Identity, id string, update services.DraftUpdate) (*models.AppealDraft, error)
	Discard(ctx context.Context, identity *services.Identity, id string) error
	Submit(ctx context.Context, identity *services.Identity, id string) (*services.SubmitResult, error)
}

// DistrictAPI is what the handlers need from services.DistrictService.
type DistrictAPI interface {
	services.DistrictLookup
	Upsert(ctx context.Context, districts []models.District) error
}

// StatisticsAPI is what the handlers need from services.StatisticsService.
type StatisticsAPI interface {
	Compute(ctx context.Context, identity *services.Identity, filter services.StatisticsFilter) (*services.Statistics, error)
}

// ImportAPI is what the handlers need from services.SpecImportService.
type ImportAPI interface {
	Import(ctx context.Context, r io.Reader, fileName, trigger string, dryRun bool) (*services.ImportSummary, error)
	ExportSpecs(ctx context.Context, w io.Writer, filter services.SpecFilter) error
	ListRuns(ctx context.Context, limit, offset int) ([]models.SpecImportRun, int64, error)
	GetRun(ctx context.Context, id uint) (*models.SpecImportRun, error)
}

// Dependencies are the services behind the HTTP handlers.
type Dependencies struct {
	Workflow   WorkflowAPI
	Specs      SpecAPI
	Drafts     DraftAPI
	Districts  DistrictAPI
	Files      services.FileStore
	Statistics StatisticsAPI
	Imports    ImportAPI
}

var deps Dependencies

// Setup installs the services the handlers call.
func Setup(d Dependencies) { deps = d }

// NewDependencies wires the gorm-backed services over db.
func NewDependencies(db *gorm.DB) Dependencies {
	if db == nil {
		db = config.DB
	}
	engine := workflow.NewEngine(workflow.Options{IncludeDestinationReview: config.App.IncludeDestinationReview})
	districts := services.NewDistrictService(db)
	files := services.NewLocalFileStore(db, config.App.UploadPath, config.App.MaxUploadBytes)
	workflowSvc := services.NewWorkflowService(services.WorkflowServiceOptions{
		Store:     services.NewGormRecordStore(db),
		Engine:    engine,
		Districts: districts,
		Logger:    config.Logger,
	})
	specs := services.NewTransferSpecService(db, districts, engine)

	return Dependencies{
		Workflow:   workflowSvc,
		Specs:      specs,
		Drafts:     services.NewDraftService(db, workflowSvc, specs, districts, files),
		Districts:  districts,
		Files:      files,
		Statistics: services.NewStatisticsService(db, districts),
		Imports:    services.NewSpecImportService(db, specs),
	}
}
