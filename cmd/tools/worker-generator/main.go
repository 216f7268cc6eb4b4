// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"meme-workers/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name        string
	Title       string
	PackageName string
	TaskType    string
	Description string
	Timeout     string
	ErrorCodes  []string
	InputFields string
}

// schemaProperties returns the properties of a JSON schema object in name order.
func schemaProperties(schema map[string]interface{}) ([]string, map[string]map[string]interface{}) {
	props := map[string]map[string]interface{}{}
	if raw, ok := schema["properties"].(map[string]interface{}); ok {
		for name, v := range raw {
			if details, ok := v.(map[string]interface{}); ok {
				props[name] = details
			}
		}
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, props
}

// goTypeFromJSONType maps JSON schema types to Go types. Optional scalars
// become pointers so an omitted value can be told apart from the zero value.
func goTypeFromJSONType(jsonType interface{}, required bool) string {
	jt, ok := jsonType.(string)
	if !ok {
		return "interface{}"
	}
	var t string
	switch jt {
	case "string":
		t = "string"
	case "integer":
		t = "int"
	case "number":
		t = "float64"
	case "boolean":
		t = "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
	if !required && t != "string" {
		return "*" + t
	}
	return t
}

// goFieldName converts snake_case property names to exported Go names.
func goFieldName(prop string) string {
	parts := strings.FieldsFunc(prop, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

// generateStructFields generates Go struct field definitions from the tool's input schema.
func generateStructFields(schema map[string]interface{}) string {
	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}
	if list, ok := schema["required"].([]string); ok {
		for _, s := range list {
			required[s] = true
		}
	}

	names, props := schemaProperties(schema)
	fields := make([]string, 0, len(names))
	for _, name := range names {
		details := props[name]
		tag := fmt.Sprintf("`json:\"%s\"`", name)
		if !required[name] {
			tag = fmt.Sprintf("`json:\"%s,omitempty\"`", name)
		}

		comment := ""
		if desc, ok := details["description"].(string); ok && desc != "" {
			comment = " // " + desc
		}
		fields = append(fields, fmt.Sprintf("\t%s %s %s%s",
			goFieldName(name), goTypeFromJSONType(details["type"], required[name]), tag, comment))
	}
	return strings.Join(fields, "\n")
}

const handlerTemplate = `// Package {{ .PackageName }} implements the {{ .Name }} tool.
package {{ .PackageName }}

import (
	"context"
	"fmt"
	"time"

	"meme-workers/internal/common/camunda"
	"meme-workers/internal/common/errors"
	"meme-workers/internal/common/logger"
	"meme-workers/internal/common/metrics"
	"meme-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
	ToolName = "{{ .Name }}"
)

type Handler struct {
	config   *Config
	logger   logger.Logger
	obs      *observability.Observability
	reporter *errors.JobReporter
}

type HandlerOptions struct {
	Config        *Config
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.With(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:   cfg,
		logger:   log,
		obs:      opts.Observability,
		reporter: errors.NewJobReporter(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err == nil {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.reporter.Report(ctx, client, job, err)
}

// Execute {{ .Description }}
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var output *Output
	start := time.Now()

	err := h.obs.Instrument(ctx, ToolName, func(ctx context.Context) (string, error) {
		// TODO: implement {{ .Name }}
		output = &Output{}
		return metrics.StatusOK, nil
	})

	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	metrics.ObserveTool(ToolName, status, time.Since(start))

	if err != nil {
		return nil, err
	}
	return output, nil
}
`

const configTemplate = `package {{ .PackageName }}

import (
	"fmt"
	"time"

	"meme-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       {{ .Timeout }},
	}
}

// FromAppConfig builds the worker config from the application config.
func FromAppConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Enabled:       wcfg.Enabled,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
`

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{ .InputFields }}
}

type Output struct {
	Status string ` + "`json:\"status\"`" + `
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"context"
	"testing"

	"meme-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	h, err := NewHandler(HandlerOptions{Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = NewHandler(HandlerOptions{Config: &Config{}})
	assert.Error(t, err)
}

func TestHandler_Execute(t *testing.T) {
	h, err := NewHandler(HandlerOptions{Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	output, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.NotNil(t, output)
}
`

// timeoutLiteral renders a registry timeout such as "30s" as a Go duration expression.
func timeoutLiteral(s string) string {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		d = 30 * time.Second
	}
	if d%time.Second == 0 {
		return fmt.Sprintf("%d * time.Second", d/time.Second)
	}
	return fmt.Sprintf("%d * time.Millisecond", d/time.Millisecond)
}

func main() {
	tool := flag.String("tool", "", "Tool name from the registry (e.g., generate_meme)")
	outputDir := flag.String("output", "./internal/workers/meme/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "", "Path to a tool registry JSON file (built-in registry when empty)")
	flag.Parse()

	if *tool == "" {
		fmt.Println("Usage: worker-generator --tool <name> [--output <dir>] [--registry <path>]")
		fmt.Println("\nExample:")
		fmt.Println("  go run cmd/tools/worker-generator/main.go --tool caption_image --registry configs/tool-registry.json")
		os.Exit(1)
	}

	reg := registry.Default()
	if *registryPath != "" {
		loaded, err := registry.LoadRegistry(*registryPath)
		if err != nil {
			fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
			os.Exit(1)
		}
		reg = loaded
	}

	found, ok := reg.Get(*tool)
	if !ok {
		fmt.Printf("Tool '%s' not found in registry\n", *tool)
		os.Exit(1)
	}

	dirName := strings.ReplaceAll(found.Name, "_", "-")
	data := WorkerData{
		Name:        found.Name,
		Title:       found.Title,
		PackageName: strings.ReplaceAll(dirName, "-", ""),
		TaskType:    found.TaskType,
		Description: strings.TrimSuffix(found.Description, "."),
		Timeout:     timeoutLiteral(found.Timeout),
		ErrorCodes:  found.ErrorCodes,
		InputFields: generateStructFields(found.InputSchema),
	}
	if data.TaskType == "" {
		data.TaskType = "meme-" + dirName
	}

	workerDir := filepath.Join(*outputDir, dirName)
	if _, err := os.Stat(workerDir); err == nil {
		fmt.Printf("Refusing to overwrite existing worker at %s\n", workerDir)
		os.Exit(1)
	}
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	templates := map[string]string{
		"handler.go":      handlerTemplate,
		"config.go":       configTemplate,
		"models.go":       modelsTemplate,
		"handler_test.go": testTemplate,
	}

	for filename, tmplStr := range templates {
		tmpl, err := template.New(filename).Parse(tmplStr)
		if err != nil {
			fmt.Printf("Error parsing template %s: %v\n", filename, err)
			continue
		}

		filePath := filepath.Join(workerDir, filename)
		file, err := os.Create(filePath)
		if err != nil {
			fmt.Printf("Error creating file %s: %v\n", filePath, err)
			continue
		}

		if err := tmpl.Execute(file, data); err != nil {
			fmt.Printf("Error executing template for %s: %v\n", filename, err)
		}
		file.Close()

		fmt.Printf("Generated %s\n", filePath)
	}

	fmt.Printf("\nWorker scaffold generated at: %s\n", workerDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement Execute in handler.go\n")
	fmt.Printf("  2. Register the worker in cmd/meme-worker/main.go\n")
	fmt.Printf("  3. Add a workers.%s entry to configs/config.yaml\n", data.TaskType)
}
