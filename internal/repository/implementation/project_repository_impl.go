package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pv-analysis-be/internal/model"
	"pv-analysis-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectRepositoryImpl struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) contract.ProjectRepository {
	return &ProjectRepositoryImpl{db: db}
}

// sliceColumns maps slice identities to their physical columns. UpdateSlice
// refuses names outside this table so a typo cannot become a silent no-op
// gorm update of zero columns.
var sliceColumns = map[string]string{
	contract.SliceConsumptionData:      "consumption_data",
	contract.SliceRawConsumptionSeries: "raw_consumption_series",
	contract.SliceAnalysisResults:      "analysis_results",
	contract.SlicePVConfiguration:      "pv_configuration",
	contract.SliceHourlyProduction:     "hourly_production",
	contract.SliceMasterVariant:        "master_variant",
	contract.SliceMasterVariantKey:     "master_variant_key",
	contract.SliceEconomics:            "economics",
	contract.SliceSettings:             "settings",
	contract.SliceCurrentScenario:      "current_scenario",
	contract.SliceYearCoverage:         "analytical_year_coverage",
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, record *model.ProjectRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *ProjectRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*model.ProjectRecord, error) {
	var record model.ProjectRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *ProjectRepositoryImpl) FindAll(ctx context.Context) ([]*model.ProjectRecord, error) {
	var records []*model.ProjectRecord
	if err := r.db.WithContext(ctx).
		Select("id", "name", "client", "created_at", "updated_at").
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *ProjectRepositoryImpl) UpdateSlice(ctx context.Context, id uuid.UUID, slice string, payload json.RawMessage) error {
	column, ok := sliceColumns[slice]
	if !ok {
		return fmt.Errorf("unknown project slice %q", slice)
	}
	return r.db.WithContext(ctx).
		Model(&model.ProjectRecord{}).
		Where("id = ?", id).
		Update(column, datatypes.JSON(payload)).Error
}

func (r *ProjectRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ProjectRecord{}, "id = ?", id).Error
}
