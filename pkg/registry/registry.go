// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

//go:embed activities.json
var defaultRegistry []byte

var (
	defaultOnce sync.Once
	defaultReg  *ActivityRegistry
	defaultErr  error
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(defaultRegistry)
	})
	return defaultReg, defaultErr
}

// DefaultBytes exposes the embedded document for tooling.
func DefaultBytes() []byte {
	out := make([]byte, len(defaultRegistry))
	copy(out, defaultRegistry)
	return out
}

// Lookup finds an activity by task type.
func (r *ActivityRegistry) Lookup(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// InputSchemaFor returns the input schema of a task type from the default registry.
func InputSchemaFor(taskType string) (map[string]interface{}, error) {
	reg, err := Default()
	if err != nil {
		return nil, err
	}
	act, ok := reg.Lookup(taskType)
	if !ok {
		return nil, fmt.Errorf("task type %q not registered", taskType)
	}
	return act.InputSchema, nil
}
