package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateProjectRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Client string `json:"client" validate:"max=255"`
}

type ProjectSummaryResponse struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Client    string    `json:"client,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProjectDetailResponse struct {
	ProjectSummaryResponse
	HasConsumptionData bool `json:"hasConsumptionData"`
	HasAnalysisResults bool `json:"hasAnalysisResults"`
	HasEconomics       bool `json:"hasEconomics"`
}
