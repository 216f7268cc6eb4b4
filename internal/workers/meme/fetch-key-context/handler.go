// Package fetchkeycontext provides the first pipeline step: it packages the
// user's message with a bounded sample of the template catalog.
package fetchkeycontext

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meme-workers/internal/common/camunda"
	"meme-workers/internal/common/errors"
	"meme-workers/internal/common/logger"
	"meme-workers/internal/common/metrics"
	"meme-workers/internal/common/observability"
	"meme-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "meme-fetch-key-context"
	ToolName = "fetch_key_context"
)

// Catalog is the read-only view of the template catalog this step needs.
type Catalog interface {
	All() map[string]models.TemplateRecord
	Sample(limit int) map[string]models.TemplateRecord
}

type Handler struct {
	config   *Config
	catalog  Catalog
	logger   logger.Logger
	obs      *observability.Observability
	reporter *errors.JobReporter
}

type HandlerOptions struct {
	Config        *Config
	Catalog       Catalog
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
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%s requires a template catalog", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.With(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:   cfg,
		catalog:  opts.Catalog,
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

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

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

// Execute returns the message unchanged with a catalog sample sized by input.Limit,
// or by the configured default when the limit is omitted. A limit of zero
// or less returns the whole catalog.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var output *Output
	start := time.Now()

	err := h.obs.Instrument(ctx, ToolName, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(input.Message) == "" {
			return metrics.StatusError, errors.NewInvalidInputError("message is required")
		}

		h.logger.Info("fetching keys for additional context", map[string]interface{}{
			"limit":   h.limitLabel(input.Limit),
			"traceId": observability.TraceID(ctx),
		})

		output = &Output{Message: input.Message, Templates: h.templates(input.Limit)}
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

func (h *Handler) templates(limit *int) map[string]models.TemplateRecord {
	if limit == nil {
		if h.config.Unbounded {
			return h.catalog.All()
		}
		return h.catalog.Sample(h.config.DefaultLimit)
	}
	return h.catalog.Sample(*limit)
}

func (h *Handler) limitLabel(limit *int) interface{} {
	if limit != nil {
		return *limit
	}
	if h.config.Unbounded {
		return "unbounded"
	}
	return h.config.DefaultLimit
}
