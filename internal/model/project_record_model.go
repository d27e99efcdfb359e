package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectRecord is the remote mirror of the shared state: identity plus one
// independently overwritable JSON column per state slice. Versioning is
// implicit by last write; a failed slice write leaves that column stale
// until the next mutation of the same kind.
type ProjectRecord struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name   string    `gorm:"type:varchar(255);not null"`
	Client string    `gorm:"type:varchar(255)"`

	ConsumptionData      datatypes.JSON `gorm:"column:consumption_data"`
	RawConsumptionSeries datatypes.JSON `gorm:"column:raw_consumption_series"`
	AnalysisResults      datatypes.JSON `gorm:"column:analysis_results"`
	PVConfiguration      datatypes.JSON `gorm:"column:pv_configuration"`
	HourlyProduction     datatypes.JSON `gorm:"column:hourly_production"`
	MasterVariant        datatypes.JSON `gorm:"column:master_variant"`
	MasterVariantKey     datatypes.JSON `gorm:"column:master_variant_key"`
	Economics            datatypes.JSON `gorm:"column:economics"`
	Settings             datatypes.JSON `gorm:"column:settings"`
	CurrentScenario      datatypes.JSON `gorm:"column:current_scenario"`
	YearCoverage         datatypes.JSON `gorm:"column:analytical_year_coverage"`

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (ProjectRecord) TableName() string {
	return "project_records"
}
