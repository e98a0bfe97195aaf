// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"welfare-workers/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name         string
	PackageName  string
	TaskType     string
	Category     string
	Description  string
	Timeout      string
	Retries      int
	ErrorCodes   []string
	InputFields  []Field
	OutputFields []Field
}

// Field is one generated struct field.
type Field struct {
	Name    string
	Type    string
	JSON    string
	Comment string
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schema map[string]interface{}) map[string]interface{} {
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		return props
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types. Union types such as
// ["number","null"] map to a pointer of the non-null member.
func goTypeFromJSONType(jsonType interface{}) string {
	switch jt := jsonType.(type) {
	case string:
		switch jt {
		case "string":
			return "string"
		case "integer":
			return "int"
		case "number":
			return "float64"
		case "boolean":
			return "bool"
		case "object":
			return "map[string]interface{}"
		case "array":
			return "[]interface{}"
		}
	case []interface{}:
		var base string
		for _, t := range jt {
			if s, ok := t.(string); ok && s != "null" {
				base = goTypeFromJSONType(s)
			}
		}
		if base == "" || base == "interface{}" || strings.HasPrefix(base, "map") || strings.HasPrefix(base, "[]") {
			return base
		}
		return "*" + base
	}
	return "interface{}"
}

// structFields builds fields from schema properties in name order so the
// generated code is stable.
func structFields(schema map[string]interface{}) []Field {
	props := parseSchema(schema)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		desc, _ := details["description"].(string)
		fields = append(fields, Field{
			Name:    goFieldName(name),
			Type:    goTypeFromJSONType(details["type"]),
			JSON:    name,
			Comment: desc,
		})
	}
	return fields
}

// goFieldName exports a JSON property name, upper-casing a trailing "Id".
func goFieldName(prop string) string {
	if prop == "" {
		return prop
	}
	name := strings.ToUpper(prop[:1]) + prop[1:]
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}

// packageName turns a task type into a Go package name.
func packageName(taskType string) string {
	return strings.NewReplacer("-", "", ".", "", "_", "").Replace(strings.ToLower(taskType))
}

const handlerTemplate = `// internal/workers/{{ .Category }}/{{ .TaskType }}/handler.go
package {{ .PackageName }}

import (
	"context"

	"welfare-workers/internal/common/camunda"
	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
)

// Service performs the {{ .Name }} work.
type Service interface {
	Run(ctx context.Context, input *Input) (*Output, error)
}

type Handler struct {
	config  *Config
	service Service
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, service Service, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		service: service,
		errors:  apperrors.NewErrorHandler(log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(TaskType, job.Variables, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Run(ctx, input)
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`

const configTemplate = `// internal/workers/{{ .Category }}/{{ .TaskType }}/config.go
package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: {{ .Timeout | durationLiteral }},
	}
}
`

const modelsTemplate = `// internal/workers/{{ .Category }}/{{ .TaskType }}/models.go
package {{ .PackageName }}

type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .Type }} ` + "`json:\"{{ .JSON }}\"`" + `{{ if .Comment }} // {{ .Comment }}{{ end }}
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .Name }} {{ .Type }} ` + "`json:\"{{ .JSON }}\"`" + `{{ if .Comment }} // {{ .Comment }}{{ end }}
{{- end }}
}
`

const testTemplate = `// internal/workers/{{ .Category }}/{{ .TaskType }}/handler_test.go
package {{ .PackageName }}

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"welfare-workers/internal/common/logger"
)

type stubService struct {
	out *Output
	err error
}

func (s stubService) Run(context.Context, *Input) (*Output, error) {
	return s.out, s.err
}

func TestHandler_Execute(t *testing.T) {
	out := &Output{}
	h := NewHandler(LoadConfig(), stubService{out: out}, logger.NewTestLogger(t))

	got, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Same(t, out, got)
}

func TestHandler_Execute_Error(t *testing.T) {
	boom := errors.New("boom")
	h := NewHandler(LoadConfig(), stubService{err: boom}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, boom)
}
`

// durationLiteral renders a registry timeout ("15s") as Go source.
func durationLiteral(timeout string) string {
	d, err := time.ParseDuration(timeout)
	if err != nil || d <= 0 {
		return "10 * time.Second"
	}
	switch {
	case d%time.Minute == 0:
		return fmt.Sprintf("%d * time.Minute", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%d * time.Second", d/time.Second)
	}
	return fmt.Sprintf("%d * time.Millisecond", d/time.Millisecond)
}

var templates = map[string]string{
	"handler.go":      handlerTemplate,
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"handler_test.go": testTemplate,
}

// newWorkerData resolves a task type against the registry.
func newWorkerData(reg *registry.ActivityRegistry, taskType string) (*WorkerData, error) {
	act, ok := reg.Lookup(taskType)
	if !ok {
		return nil, fmt.Errorf("task type %q not found in registry", taskType)
	}
	return &WorkerData{
		Name:         act.DisplayName,
		PackageName:  packageName(act.TaskType),
		TaskType:     act.TaskType,
		Category:     act.Category,
		Description:  act.Description,
		Timeout:      act.Timeout,
		Retries:      act.Retries,
		ErrorCodes:   act.ErrorCodes,
		InputFields:  structFields(act.InputSchema),
		OutputFields: structFields(act.OutputSchema),
	}, nil
}

// render executes every template and gofmts the result.
func render(data *WorkerData) (map[string][]byte, error) {
	funcs := template.FuncMap{"durationLiteral": durationLiteral}
	files := make(map[string][]byte, len(templates))
	for name, src := range templates {
		tmpl, err := template.New(name).Funcs(funcs).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		var b strings.Builder
		if err := tmpl.Execute(&b, data); err != nil {
			return nil, fmt.Errorf("execute template %s: %w", name, err)
		}
		formatted, err := format.Source([]byte(b.String()))
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		files[name] = formatted
	}
	return files, nil
}

// generate writes the scaffold and refuses to overwrite an existing worker.
func generate(reg *registry.ActivityRegistry, taskType, outputDir string) (string, error) {
	data, err := newWorkerData(reg, taskType)
	if err != nil {
		return "", err
	}
	files, err := render(data)
	if err != nil {
		return "", err
	}

	workerDir := filepath.Join(outputDir, data.Category, data.TaskType)
	if _, err := os.Stat(workerDir); err == nil {
		return "", fmt.Errorf("worker directory %s already exists", workerDir)
	}
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(workerDir, name), content, 0644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	return workerDir, nil
}

func main() {
	taskType := flag.String("taskType", "", "Task type from the registry (e.g., move-to-review)")
	outputDir := flag.String("output", "./internal/workers/", "Root directory for generated workers")
	registryPath := flag.String("registry", "pkg/registry/activities.json", "Path to the activity registry JSON file")
	flag.Parse()

	if *taskType == "" {
		fmt.Println("Usage: worker-generator -taskType <type> [-output <dir>] [-registry <path>]")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	dir, err := generate(reg, *taskType, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Worker scaffold generated at %s\n", dir)
	fmt.Println("Next: implement Service, register the worker in cmd/worker-manager/main.go and add it to configs/config.yaml")
}
