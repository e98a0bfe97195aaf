package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"welfare-workers/pkg/registry"
)

func TestGoTypeFromJSONType(t *testing.T) {
	tests := []struct {
		name     string
		jsonType interface{}
		want     string
	}{
		{"string", "string", "string"},
		{"integer", "integer", "int"},
		{"number", "number", "float64"},
		{"boolean", "boolean", "bool"},
		{"object", "object", "map[string]interface{}"},
		{"array", "array", "[]interface{}"},
		{"nullable number", []interface{}{"number", "null"}, "*float64"},
		{"nullable object", []interface{}{"object", "null"}, "map[string]interface{}"},
		{"missing", nil, "interface{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, goTypeFromJSONType(tt.jsonType))
		})
	}
}

func TestStructFields_SortedAndNamed(t *testing.T) {
	fields := structFields(map[string]interface{}{
		"properties": map[string]interface{}{
			"userId":  map[string]interface{}{"type": "string", "description": "Citizen id"},
			"remarks": map[string]interface{}{"type": "string"},
		},
	})

	require.Len(t, fields, 2)
	assert.Equal(t, Field{Name: "Remarks", Type: "string", JSON: "remarks"}, fields[0])
	assert.Equal(t, Field{Name: "UserID", Type: "string", JSON: "userId", Comment: "Citizen id"}, fields[1])
}

func TestDurationLiteral(t *testing.T) {
	assert.Equal(t, "15 * time.Second", durationLiteral("15s"))
	assert.Equal(t, "2 * time.Minute", durationLiteral("2m"))
	assert.Equal(t, "1500 * time.Millisecond", durationLiteral("1.5s"))
	assert.Equal(t, "10 * time.Second", durationLiteral("soon"))
}

func TestRender_EveryRegisteredActivity(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	for _, act := range reg.Activities {
		t.Run(act.TaskType, func(t *testing.T) {
			data, err := newWorkerData(reg, act.TaskType)
			require.NoError(t, err)

			files, err := render(data)
			require.NoError(t, err)
			assert.Len(t, files, len(templates))
			assert.Contains(t, string(files["handler.go"]), `TaskType = "`+act.TaskType+`"`)
		})
	}
}

func TestGenerate(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	out := t.TempDir()

	dir, err := generate(reg, "move-to-review", out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "application", "move-to-review"), dir)

	models, err := os.ReadFile(filepath.Join(dir, "models.go"))
	require.NoError(t, err)
	assert.Contains(t, string(models), "package movetoreview")
	assert.Contains(t, string(models), "ApplicationID")

	_, err = generate(reg, "move-to-review", out)
	assert.Error(t, err, "existing worker must not be overwritten")

	_, err = generate(reg, "no-such-task", out)
	assert.Error(t, err)
}
