// File path: internal/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/orderflow/workorder-engine/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	recipesLoadedVar  *expvar.Int
	recipesRejectedVar *expvar.Int

	matchAttemptsVar *expvar.Int
	matchSuccessVar  *expvar.Int
	matchTimeoutVar  *expvar.Int

	stepsExecutedVar  *expvar.Int
	iterationLimitVar *expvar.Int

	probeLatencyMSVar *expvar.Int
	probeCallsVar     *expvar.Int

	dmlByRiskVar *expvar.Map
)

func ensureInit() {
	initOnce.Do(func() {
		recipesLoadedVar = expvar.NewInt("workorder_recipes_loaded")
		recipesRejectedVar = expvar.NewInt("workorder_recipes_rejected")

		matchAttemptsVar = expvar.NewInt("workorder_match_attempts_total")
		matchSuccessVar = expvar.NewInt("workorder_match_success_total")
		matchTimeoutVar = expvar.NewInt("workorder_match_timeout_total")

		stepsExecutedVar = expvar.NewInt("workorder_steps_executed_total")
		iterationLimitVar = expvar.NewInt("workorder_iteration_limit_total")

		probeLatencyMSVar = expvar.NewInt("workorder_probe_latency_ms_total")
		probeCallsVar = expvar.NewInt("workorder_probe_calls_total")

		dmlByRiskVar = expvar.NewMap("workorder_dml_by_risk")
	})
}

// StartSpan begins a debug-level trace span, mirroring the logging idiom used
// throughout the core: no dedicated tracing SDK, just paired start/end log
// lines carrying elapsed duration.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

func RecordRecipeLoad(accepted bool) {
	ensureInit()
	if accepted {
		recipesLoadedVar.Add(1)
		return
	}
	recipesRejectedVar.Add(1)
}

func RecordMatchAttempt(matched bool, timedOut bool) {
	ensureInit()
	matchAttemptsVar.Add(1)
	if timedOut {
		matchTimeoutVar.Add(1)
		return
	}
	if matched {
		matchSuccessVar.Add(1)
	}
}

func RecordStepExecuted() {
	ensureInit()
	stepsExecutedVar.Add(1)
}

func RecordIterationLimitTripped() {
	ensureInit()
	iterationLimitVar.Add(1)
}

func RecordProbeCall(duration time.Duration) {
	ensureInit()
	probeCallsVar.Add(1)
	if duration > 0 {
		probeLatencyMSVar.Add(duration.Milliseconds())
	}
}

func RecordDML(risk string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(risk))
	if key == "" {
		key = "unknown"
	}
	dmlByRiskVar.Add(key, 1)
}

func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
