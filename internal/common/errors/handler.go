package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorLogger is the slice of logger.Logger the reporter needs.
type ErrorLogger interface {
	Error(msg string, fields map[string]interface{})
}

// JobReporter reports a failed tool invocation back to its Zeebe job.
type JobReporter struct {
	log ErrorLogger
}

func NewJobReporter(log ErrorLogger) *JobReporter {
	return &JobReporter{log: log}
}

// Report throws err on the job as a BPMN error carrying the MEME_* code, so
// the process model can route on it. A code with a retry budget fails the
// job instead, never granting more retries than the job has left.
func (r *JobReporter) Report(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	r.log.Error("tool job failed", map[string]interface{}{
		"jobKey":             job.Key,
		"jobType":            job.Type,
		"processInstanceKey": job.ProcessInstanceKey,
		"code":               string(stdErr.Code),
		"bpmnCode":           bpmnErr.Code,
		"category":           GetErrorCategory(stdErr.Code),
		"step":               stdErr.Step(),
		"details":            stdErr.Details,
	})

	vars, verr := json.Marshal(bpmnErr.ToErrorVariables())

	if retries, ok := jobRetries(bpmnErr, job.Retries); ok {
		fail := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(retries).
			ErrorMessage(bpmnErr.Message)
		if verr == nil {
			if withVars, err := fail.VariablesFromString(string(vars)); err == nil {
				_, _ = withVars.Send(ctx)
				return
			}
		}
		_, _ = fail.Send(ctx)
		return
	}

	throw := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)
	if verr == nil {
		if withVars, err := throw.VariablesFromString(string(vars)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = throw.Send(ctx)
}

// jobRetries reports whether a failure should be retried by the engine and
// with how many retries, capped at what the job has left.
func jobRetries(bpmnErr *BPMNError, remaining int32) (int32, bool) {
	if bpmnErr.Retries <= 0 || remaining <= 0 {
		return 0, false
	}
	return min(int32(bpmnErr.Retries), remaining), true
}
