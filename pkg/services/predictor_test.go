package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"forecast-api/pkg/models"
)

func TestHeuristicEstimate(t *testing.T) {
	testCases := []struct {
		name     string
		catID    string
		price    float64
		expected float64
	}{
		{"foods", "FOODS", 2.99, 5.0 * 1.3},
		{"household", "HOUSEHOLD", 2.99, 5.0 * 0.8},
		{"hobbies", "HOBBIES", 2.99, 5.0 * 0.9},
		{"unknown category", "ELECTRONICS", 2.99, 5.0},
		{"premium price", "FOODS", 6.50, 5.0 * 1.3 * 0.7},
		{"budget price", "FOODS", 1.50, 5.0 * 1.3 * 1.4},
	}

	for _, tc := range testCases {
		norm := models.NormalizedRequest{CatID: tc.catID, SellPrice: tc.price}
		got := HeuristicEstimate(norm)
		if got != tc.expected {
			t.Errorf("%s: HeuristicEstimate() = %v, expected %v", tc.name, got, tc.expected)
		}
		// 決定性: 同じ入力は常に同じ値
		if HeuristicEstimate(norm) != got {
			t.Errorf("%s: heuristic must be deterministic", tc.name)
		}
	}
}

func TestLinearModelPredict(t *testing.T) {
	model := &LinearModel{
		ModelVersion: "test-1",
		Intercept:    1.0,
		Weights:      []float64{0.5, 2.0},
	}

	got, err := model.Predict(context.Background(), models.FeatureVector{2.0, 3.0})
	if err != nil {
		t.Fatal(err)
	}
	expected := 1.0 + 0.5*2.0 + 2.0*3.0
	if got != expected {
		t.Errorf("Predict() = %v, expected %v", got, expected)
	}
}

func TestLinearModelRejectsLengthMismatch(t *testing.T) {
	model := &LinearModel{Weights: []float64{0.5, 2.0}}

	if _, err := model.Predict(context.Background(), models.FeatureVector{1.0}); err == nil {
		t.Error("Predict() should reject a feature vector of the wrong length")
	}
}

func TestLoadLinearModelMissingFile(t *testing.T) {
	model, err := LoadLinearModel(filepath.Join(t.TempDir(), "no_such_model.json"))
	if err != nil {
		t.Fatalf("missing model file should not be an error, got %v", err)
	}
	if model != nil {
		t.Error("missing model file should yield a nil model (fallback mode)")
	}
}

func TestLoadLinearModelFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	content := `{"version":"9.9.9","model_type":"gradient_boosting","intercept":2.5,"weights":[1,2,3]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	model, err := LoadLinearModel(path)
	if err != nil {
		t.Fatal(err)
	}
	if model == nil {
		t.Fatal("expected a model")
	}
	if model.Version() != "9.9.9" {
		t.Errorf("Expected version 9.9.9, got %s", model.Version())
	}
	if len(model.Weights) != 3 {
		t.Errorf("Expected 3 weights, got %d", len(model.Weights))
	}
}

func TestLoadLinearModelRejectsEmptyWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(`{"version":"1","weights":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadLinearModel(path); err == nil {
		t.Error("model without weights should be rejected")
	}
}

func TestLoadModelInfoDefaults(t *testing.T) {
	info, err := LoadModelInfo(filepath.Join(t.TempDir(), "no_such_info.json"))
	if err != nil {
		t.Fatalf("missing info file should not be an error, got %v", err)
	}
	if info.ModelType != "gradient_boosting" {
		t.Errorf("Expected default model type, got %s", info.ModelType)
	}
	if info.FeatureCount != FeatureCount {
		t.Errorf("Expected default feature count %d, got %d", FeatureCount, info.FeatureCount)
	}
}

func TestLoadEncoderTableMissingFile(t *testing.T) {
	table, err := LoadEncoderTable(filepath.Join(t.TempDir(), "no_such_encoders.json"))
	if err != nil {
		t.Fatalf("missing encoder file should fall back to the default table, got %v", err)
	}
	if table == nil || len(table.Columns) == 0 {
		t.Fatal("expected the built-in default encoder table")
	}
}
