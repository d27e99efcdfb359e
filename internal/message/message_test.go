package message

import (
	"encoding/json"
	"testing"

	"pv-analysis-be/internal/entity"
)

func TestDecodeDataUploaded(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "valid payload",
			data: `{"filename":"load_2024.csv","rows":8760,"year":2024}`,
		},
		{
			name:    "missing filename",
			data:    `{"rows":8760,"year":2024}`,
			wantErr: true,
		},
		{
			name:    "zero rows",
			data:    `{"filename":"x.csv","rows":0,"year":2024}`,
			wantErr: true,
		},
		{
			name:    "year out of range",
			data:    `{"filename":"x.csv","rows":100,"year":1899}`,
			wantErr: true,
		},
		{
			name:    "not json",
			data:    `"plain string"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Envelope{Type: TypeDataUploaded, Data: json.RawMessage(tt.data)}
			var p DataUploadedPayload
			err := Decode(env, &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeScenarioPayload(t *testing.T) {
	env := Envelope{
		Type: TypeScenarioChangedInput,
		Data: json.RawMessage(`{"scenario":"P75","source":"analysis"}`),
	}
	var p ScenarioPayload
	if err := Decode(env, &p); err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if p.Scenario != entity.ScenarioP75 {
		t.Errorf("Scenario = %q, want %q", p.Scenario, entity.ScenarioP75)
	}
	if p.Source != "analysis" {
		t.Errorf("Source = %q, want %q", p.Source, "analysis")
	}

	var missing ScenarioPayload
	if err := Decode(Envelope{Type: TypeScenarioChangedInput}, &missing); err == nil {
		t.Error("Decode() with no payload should fail the required check")
	}
}

func TestNewRoundTrip(t *testing.T) {
	env := New(TypeDataAvailable, DataAvailablePayload{
		Meta:     &entity.ConsumptionMeta{Source: "load.csv", Samples: 8760, Year: 2024},
		Restored: true,
	})
	if env.Type != TypeDataAvailable {
		t.Fatalf("Type = %q, want %q", env.Type, TypeDataAvailable)
	}

	var p DataAvailablePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Meta == nil || p.Meta.Samples != 8760 || !p.Restored {
		t.Errorf("round trip mismatch: %+v", p)
	}
}

func TestNewNilPayload(t *testing.T) {
	env := New(TypeDataCleared, nil)
	if env.Type != TypeDataCleared || env.Data != nil {
		t.Errorf("New(nil) = %+v, want bare envelope", env)
	}
}
