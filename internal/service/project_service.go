package service

import (
	"context"

	"pv-analysis-be/internal/dto"
	"pv-analysis-be/internal/model"
	"pv-analysis-be/internal/repository/unitofwork"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IProjectService interface {
	GetAll(ctx context.Context) ([]dto.ProjectSummaryResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ProjectDetailResponse, error)
	Create(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectSummaryResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewProjectService(uowFactory unitofwork.RepositoryFactory) IProjectService {
	return &projectService{uowFactory: uowFactory}
}

func (s *projectService) GetAll(ctx context.Context) ([]dto.ProjectSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	records, err := uow.ProjectRepository().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]dto.ProjectSummaryResponse, 0, len(records))
	for _, record := range records {
		res = append(res, toSummary(record))
	}
	return res, nil
}

func (s *projectService) Show(ctx context.Context, id uuid.UUID) (*dto.ProjectDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	record, err := uow.ProjectRepository().FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Project not found")
	}

	return &dto.ProjectDetailResponse{
		ProjectSummaryResponse: toSummary(record),
		HasConsumptionData:     len(record.ConsumptionData) > 0,
		HasAnalysisResults:     len(record.AnalysisResults) > 0,
		HasEconomics:           len(record.Economics) > 0,
	}, nil
}

func (s *projectService) Create(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectSummaryResponse, error) {
	record := &model.ProjectRecord{
		Name:   req.Name,
		Client: req.Client,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ProjectRepository().Create(ctx, record); err != nil {
		return nil, err
	}

	summary := toSummary(record)
	return &summary, nil
}

func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	record, err := uow.ProjectRepository().FindById(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return fiber.NewError(fiber.StatusNotFound, "Project not found")
	}
	return uow.ProjectRepository().Delete(ctx, id)
}

func toSummary(record *model.ProjectRecord) dto.ProjectSummaryResponse {
	return dto.ProjectSummaryResponse{
		Id:        record.Id,
		Name:      record.Name,
		Client:    record.Client,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
