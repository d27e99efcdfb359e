// Package message defines the typed envelope exchanged between the shell and
// the UI modules, and the full taxonomy of message types in both directions.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Envelope is the wire form of every message: a type code plus an opaque
// payload. Unknown types and malformed payloads are dropped by the receiver,
// never answered with an error.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Module -> core message types.
const (
	TypeDataUploaded          = "DATA_UPLOADED"
	TypeAnalysisComplete      = "ANALYSIS_COMPLETE"
	TypeMasterVariantSelected = "MASTER_VARIANT_SELECTED"
	TypeScenarioChangedInput  = "PRODUCTION_SCENARIO_CHANGED"
	TypeSettingsChanged       = "SETTINGS_CHANGED"
	TypeEconomicsCalculated   = "ECONOMICS_CALCULATED"
	TypeRequestSharedData     = "REQUEST_SHARED_DATA"
	TypeRequestSettings       = "REQUEST_SETTINGS"
	TypeRequestScenario       = "REQUEST_SCENARIO"
	TypeDataCleared           = "DATA_CLEARED"
	TypeNavigate              = "NAVIGATE"
	TypeProjectCreated        = "PROJECT_CREATED"
	TypeProjectLoadRequest    = "PROJECT_LOAD_REQUEST"
	TypeRequestProject        = "REQUEST_PROJECT"
)

// Core -> module message types. DATA_CLEARED appears in both directions: the
// inbound form requests the reset, the outbound form confirms it.
const (
	TypeSharedDataResponse   = "SHARED_DATA_RESPONSE"
	TypeAnalysisResults      = "ANALYSIS_RESULTS"
	TypeSettingsUpdated      = "SETTINGS_UPDATED"
	TypeScenarioChanged      = "SCENARIO_CHANGED"
	TypeMasterVariantChanged = "MASTER_VARIANT_CHANGED"
	TypeEconomicsUpdated     = "ECONOMICS_UPDATED"
	TypeDataAvailable        = "DATA_AVAILABLE"
	TypeProjectLoaded        = "PROJECT_LOADED"
	TypeProjectChanged       = "PROJECT_CHANGED"
)

var validate = validator.New()

// Decode unmarshals the envelope payload into dst and validates it. A nil
// payload decodes only when dst has no required fields.
func Decode(env Envelope, dst interface{}) error {
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			return fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validate %s payload: %w", env.Type, err)
	}
	return nil
}

// New builds an envelope, marshalling the payload. Marshal failures return a
// payload-less envelope; outbound payloads are shell-owned structs and do not
// fail in practice.
func New(msgType string, payload interface{}) Envelope {
	if payload == nil {
		return Envelope{Type: msgType}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{Type: msgType}
	}
	return Envelope{Type: msgType, Data: data}
}
