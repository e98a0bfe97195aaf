// internal/common/camunda/job.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/validation"
	"welfare-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

var validators sync.Map // taskType -> *validation.Validator

func validatorFor(taskType string) (*validation.Validator, error) {
	if v, ok := validators.Load(taskType); ok {
		return v.(*validation.Validator), nil
	}
	schema, err := registry.InputSchemaFor(taskType)
	if err != nil {
		return nil, err
	}
	v, err := validation.NewValidator(schema)
	if err != nil {
		return nil, err
	}
	actual, _ := validators.LoadOrStore(taskType, v)
	return actual.(*validation.Validator), nil
}

// DecodeVariables checks raw job variables against the task type's registered
// input schema and decodes them into out.
func DecodeVariables(taskType, variables string, out interface{}) error {
	if err := ValidateVariables(taskType, []byte(variables)); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(variables), out); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return nil
}

// ValidateVariables is the schema half of DecodeVariables.
func ValidateVariables(taskType string, doc []byte) error {
	v, err := validatorFor(taskType)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	res, err := v.ValidateJSON(doc)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	if !res.Valid {
		return apperrors.NewValidationError(res.Summary())
	}
	return nil
}

// CompleteJob sends the completion command with output as process variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete job command: %w", err)
	}
	return nil
}
