// Package generatememe provides the final pipeline step: dispatching a
// decision record to a meme link, with optional save and sticker conversion.
package generatememe

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
	"meme-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "meme-generate-meme"
	ToolName = "generate_meme"
)

// Dispatcher runs a dispatch request to completion.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) (*models.GeneratedArtifact, error)
}

type Handler struct {
	config     *Config
	dispatcher Dispatcher
	policy     guardrail.Policy
	logger     logger.Logger
	obs        *observability.Observability
	reporter   *errors.JobReporter
}

type HandlerOptions struct {
	Config        *Config
	Dispatcher    Dispatcher
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
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("%s requires a dispatcher", TaskType)
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
		config:     cfg,
		dispatcher: opts.Dispatcher,
		policy:     policy,
		logger:     log,
		obs:        opts.Observability,
		reporter:   errors.NewJobReporter(log),
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

// Execute decodes the decision record, gates it through the content policy
// and dispatches it. Result holds the sticker link when one was produced,
// otherwise the meme link.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var output *Output
	start := time.Now()

	err := h.obs.Instrument(ctx, ToolName, func(ctx context.Context) (string, error) {
		rec, err := decision.Decode(input.Decision)
		if err != nil {
			return metrics.StatusError, err
		}

		parts := append([]string{rec.Search}, rec.Text...)
		if verdict := h.policy.Evaluate(ctx, guardrail.Content(parts...)); !verdict.Allowed {
			metrics.GuardrailRejections.WithLabelValues(verdict.Category).Inc()
			h.logger.Warn("request refused by content policy", map[string]interface{}{
				"category": verdict.Category,
			})
			output = &Output{Status: StatusRejected, Result: guardrail.RefusalMessage, Category: verdict.Category}
			return metrics.StatusRejected, nil
		}

		req := models.DispatchRequest{
			Decision:    rec,
			UseTemplate: boolOr(input.UseTemplate, rec.TemplateKey != ""),
			WantSticker: boolOr(input.WantTeleSticker, false),
			SaveAsImage: boolOr(input.SaveAsImage, true),
		}

		artifact, err := h.dispatcher.Dispatch(ctx, req)
		if err != nil {
			stdErr := errors.Normalize(err)
			h.logger.Error("meme generation failed", map[string]interface{}{
				"errorCode": string(stdErr.Code),
				"step":      stdErr.Step(),
				"error":     err.Error(),
			})
			return metrics.StatusError, err
		}

		output = &Output{
			Status:      StatusOK,
			Result:      artifact.Result(),
			Branch:      artifact.Branch,
			MemeLink:    artifact.MemeLink,
			StickerLink: artifact.StickerLink,
			SavedPath:   artifact.SavedPath,
			SaveError:   artifact.SaveError,
		}
		h.logger.Info("meme generated", map[string]interface{}{
			"branch":  string(artifact.Branch),
			"result":  output.Result,
			"sticker": artifact.StickerLink != "",
			"saved":   artifact.SavedPath != "",
			"traceId": observability.TraceID(ctx),
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
