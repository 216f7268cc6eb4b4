// Package parsemessage provides the second pipeline step: the content
// policy gate followed by validation of the agent's decision record.
package parsemessage

import (
	"context"
	"fmt"
	"time"

	"meme-workers/internal/common/camunda"
	"meme-workers/internal/common/errors"
	"meme-workers/internal/common/logger"
	"meme-workers/internal/common/metrics"
	"meme-workers/internal/common/observability"
	"meme-workers/internal/decision"
	"meme-workers/internal/guardrail"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "meme-parse-message"
	ToolName = "parse_message"
)

type Handler struct {
	config    *Config
	validator *decision.Validator
	policy    guardrail.Policy
	logger    logger.Logger
	obs       *observability.Observability
	reporter  *errors.JobReporter
}

type HandlerOptions struct {
	Config        *Config
	Catalog       decision.TemplateLookup
	Policy        guardrail.Policy
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

	policy := opts.Policy
	if policy == nil {
		policy = guardrail.AllowAll
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.With(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:    cfg,
		validator: decision.NewValidator(opts.Catalog),
		policy:    policy,
		logger:    log,
		obs:       opts.Observability,
		reporter:  errors.NewJobReporter(log),
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

// Execute gates the request through the content policy and validates the
// decision record. A refusal is returned as data with status "rejected".
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var output *Output
	start := time.Now()

	err := h.obs.Instrument(ctx, ToolName, func(ctx context.Context) (string, error) {
		parts := append([]string{input.Message}, decision.UserContent(input.Decision)...)
		if verdict := h.policy.Evaluate(ctx, guardrail.Content(parts...)); !verdict.Allowed {
			output = Reject(verdict)
			metrics.GuardrailRejections.WithLabelValues(verdict.Category).Inc()
			h.logger.Warn("request refused by content policy", map[string]interface{}{
				"category": verdict.Category,
			})
			return metrics.StatusRejected, nil
		}

		res, err := h.validator.Validate(input.Decision)
		if err != nil {
			h.logger.Warn("decision record rejected", map[string]interface{}{
				"errorCode": string(errors.Normalize(err).Code),
				"error":     err.Error(),
			})
			return metrics.StatusError, err
		}

		for _, w := range res.Warnings {
			h.logger.Warn("decision record normalized", map[string]interface{}{
				"code":    w.Code,
				"field":   w.Field,
				"message": w.Message,
			})
		}

		output = &Output{
			Status:   StatusOK,
			Decision: &res.Record,
			Strategy: res.Strategy,
			Warnings: res.Warnings,
		}
		h.logger.Info("decision record validated", map[string]interface{}{
			"strategy":    string(res.Strategy),
			"templateKey": res.Record.TemplateKey,
			"warnings":    len(res.Warnings),
			"traceId":     observability.TraceID(ctx),
		})
		return metrics.StatusOK, nil
	})

	status := metrics.StatusOK
	switch {
	case err != nil:
		status = metrics.StatusError
	case output.Status == StatusRejected:
		status = metrics.StatusRejected
	}
	metrics.ObserveTool(ToolName, status, time.Since(start))

	if err != nil {
		return nil, err
	}
	return output, nil
}

// Reject builds the refusal output for a failing verdict.
func Reject(verdict guardrail.Verdict) *Output {
	return &Output{
		Status:   StatusRejected,
		Message:  guardrail.RefusalMessage,
		Category: verdict.Category,
	}
}
