package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConsumptionMeta is the summary metadata recorded when a module uploads a
// consumption dataset. The full-resolution series lives in the external
// data-analysis service; only this summary is held in memory.
type ConsumptionMeta struct {
	Source  string `json:"source"`
	Samples int    `json:"samples"`
	Year    int    `json:"year"`
}

// SeriesPoint is one hourly sample of the raw consumption series.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// YearCoverage describes the actual date range and completeness of the
// loaded series. A partial year has Complete=false and Hours < 8760.
type YearCoverage struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Hours    int       `json:"hours"`
	Complete bool      `json:"complete"`
}

// ProjectIdentity identifies the currently active project, or is absent when
// no project is loaded.
type ProjectIdentity struct {
	Id     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Client string    `json:"client"`
}
