// Package metrics centralises metric emission for the dispatch engine so
// metric names and tag sets stay consistent across components.
package metrics

import (
	"time"

	"github.com/modubang/notify-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// JobMetric captures one dispatch job lifecycle event.
type JobMetric struct {
	JobType  string
	Status   string
	Duration time.Duration
	Total    int
	Sent     int
	Failed   int
}

// EmitJobFinished emits the terminal metrics for one dispatch job.
func EmitJobFinished(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"job_type": in.JobType,
		"status":   in.Status,
	}
	sink.Count("dispatch.job.finished", 1, tags)
	sink.Count("dispatch.recipients.sent", int64(in.Sent), tags)
	sink.Count("dispatch.recipients.failed", int64(in.Failed), tags)
	if in.Duration > 0 {
		sink.Timing("dispatch.job.duration", in.Duration, tags)
	}
}

// EmitSendResult emits one provider send attempt outcome.
func EmitSendResult(sink statsd.Sink, jobType string, ok bool, duration time.Duration) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if !ok {
		result = ResultError
	}
	tags := map[string]string{
		"job_type": jobType,
		"result":   result,
	}
	sink.Count("dispatch.send", 1, tags)
	if duration > 0 {
		sink.Timing("dispatch.send.duration", duration, tags)
	}
}

// EmitQueueDepth reports the dispatcher queue backlog.
func EmitQueueDepth(sink statsd.Sink, depth int) {
	if sink == nil {
		return
	}
	sink.Gauge("dispatch.queue.depth", float64(depth), nil)
}

// EmitSweep reports how many stale jobs a startup sweep finalized.
func EmitSweep(sink statsd.Sink, finalized int) {
	if sink == nil {
		return
	}
	sink.Count("dispatch.sweep.finalized", int64(finalized), nil)
}
