// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/validation"
	"welfare-workers/pkg/registry"
)

const defaultRegistryPath = "pkg/registry/activities.json"

var knownErrorCodes = map[string]bool{}

func init() {
	for _, c := range []apperrors.ErrorCode{
		apperrors.ErrCodeValidation, apperrors.ErrCodeRemarksRequired,
		apperrors.ErrCodeNotFound, apperrors.ErrCodeInvalidTransition, apperrors.ErrCodePermissionDenied,
		apperrors.ErrCodeDuplicateApplication, apperrors.ErrCodeDuplicateNotification, apperrors.ErrCodeDuplicateScheme,
		apperrors.ErrCodeStorage, apperrors.ErrCodeSearchFailed, apperrors.ErrCodeNotificationSendFailed,
		apperrors.ErrCodeInternal,
	} {
		knownErrorCodes[string(c)] = true
	}
}

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	default:
		help()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID (e.g., application.record.create)")
	displayName := fs.String("displayName", "", "Display Name")
	description := fs.String("description", "", "Description")
	category := fs.String("category", "", "Category (eligibility, application, notification)")
	taskType := fs.String("taskType", "", "Zeebe task type (e.g., create-application)")
	version := fs.String("version", "1.0.0", "Version")
	status := fs.String("status", "planned", "Implementation status (planned, implemented)")
	timeout := fs.String("timeout", "10s", "Job timeout")
	fs.Parse(args)

	if *id == "" || *displayName == "" || *category == "" || *taskType == "" {
		fs.Usage()
		return fmt.Errorf("id, displayName, category and taskType are required")
	}
	if _, err := time.ParseDuration(*timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	reg, err := registry.LoadRegistry(*path)
	if os.IsNotExist(err) {
		reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
	}
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for _, existing := range reg.Activities {
		if existing.ID == *id || existing.TaskType == *taskType {
			return fmt.Errorf("activity %s (%s) already exists", existing.ID, existing.TaskType)
		}
	}

	reg.Activities = append(reg.Activities, registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *status,
		InputSchema:          map[string]interface{}{"type": "object"},
		OutputSchema:         map[string]interface{}{"type": "object"},
		ErrorCodes:           []string{string(apperrors.ErrCodeValidation)},
		Timeout:              *timeout,
		Retries:              3,
		Workflows:            []string{},
		Tags:                 []string{*category},
	})
	if err := saveRegistry(reg, *path); err != nil {
		return err
	}
	fmt.Printf("Added activity: %s\n", *id)
	return nil
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Task type to update")
	field := fs.String("field", "", "Field to update (status, version, displayName, description, timeout, retries)")
	value := fs.String("value", "", "New value for the field")
	fs.Parse(args)

	if *taskType == "" || *field == "" || *value == "" {
		fs.Usage()
		return fmt.Errorf("taskType, field and value are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	act, ok := reg.Lookup(*taskType)
	if !ok {
		return fmt.Errorf("task type %s not found", *taskType)
	}

	switch *field {
	case "status":
		act.ImplementationStatus = *value
	case "version":
		act.Version = *value
	case "displayName":
		act.DisplayName = *value
	case "description":
		act.Description = *value
	case "timeout":
		if _, err := time.ParseDuration(*value); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		act.Timeout = *value
	case "retries":
		retries, err := strconv.Atoi(*value)
		if err != nil || retries < 0 {
			return fmt.Errorf("invalid retries value %q", *value)
		}
		act.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", *field)
	}

	if err := saveRegistry(reg, *path); err != nil {
		return err
	}
	fmt.Printf("Updated %s: %s = %s\n", *taskType, *field, *value)
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	problems := validateRegistry(reg)
	for _, p := range problems {
		fmt.Println("  -", p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("registry has %d problem(s)", len(problems))
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

// validateRegistry checks identity fields, timeouts, error codes and that
// every input schema compiles.
func validateRegistry(reg *registry.ActivityRegistry) []string {
	var problems []string
	if len(reg.Activities) == 0 {
		return []string{"registry contains no activities"}
	}

	ids := map[string]bool{}
	taskTypes := map[string]bool{}
	for _, a := range reg.Activities {
		switch {
		case a.ID == "":
			problems = append(problems, "activity missing id")
			continue
		case ids[a.ID]:
			problems = append(problems, fmt.Sprintf("duplicate activity id %s", a.ID))
		case a.TaskType == "":
			problems = append(problems, fmt.Sprintf("%s: missing taskType", a.ID))
		case taskTypes[a.TaskType]:
			problems = append(problems, fmt.Sprintf("%s: duplicate taskType %s", a.ID, a.TaskType))
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true

		if a.DisplayName == "" || a.Category == "" {
			problems = append(problems, fmt.Sprintf("%s: displayName and category are required", a.ID))
		}
		if _, err := time.ParseDuration(a.Timeout); err != nil {
			problems = append(problems, fmt.Sprintf("%s: invalid timeout %q", a.ID, a.Timeout))
		}
		for _, code := range a.ErrorCodes {
			if !knownErrorCodes[code] {
				problems = append(problems, fmt.Sprintf("%s: unknown error code %s", a.ID, code))
			}
		}
		if _, err := validation.NewValidator(a.InputSchema); err != nil {
			problems = append(problems, fmt.Sprintf("%s: input schema: %v", a.ID, err))
		}
	}
	return problems
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	acts := append([]registry.Activity(nil), reg.Activities...)
	sort.Slice(acts, func(i, j int) bool {
		if acts[i].Category != acts[j].Category {
			return acts[i].Category < acts[j].Category
		}
		return acts[i].TaskType < acts[j].TaskType
	})
	for _, a := range acts {
		fmt.Printf("%-14s %-28s %-12s %s\n", a.Category, a.TaskType, a.ImplementationStatus, a.Timeout)
	}
	return nil
}

// saveRegistry writes the registry back with a fresh lastUpdated date.
func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	reg.LastUpdated = time.Now().Format("2006-01-02")
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add       Add a new activity to the registry
  update    Update one field of an activity, addressed by task type
  validate  Check ids, timeouts, error codes and input schemas
  list      Print every activity grouped by category
  help      Show this help message

Examples:
  registry-updater add -id application.record.archive -displayName "Archive Application" -category application -taskType archive-application
  registry-updater update -taskType move-to-review -field timeout -value 15s
  registry-updater validate -path pkg/registry/activities.json

Use 'registry-updater <command> -h' for more information about a command.`)
}
