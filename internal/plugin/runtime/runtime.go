// Package runtime implements the sandboxed script runtime that
// executes a plugin's check() script. Every RunCheck call builds a fresh
// goja VM (goja values aren't safe to share across goroutines); calls on one
// plugin's Runtime are not serialised against each other.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"golang.org/x/time/rate"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
	"github.com/whitebite/isolate-core/internal/logging"
	"github.com/whitebite/isolate-core/internal/metrics"
)

const (
	defaultTimeCap  = 10 * time.Second
	maxCallStackSize = 256 // best-effort recursion/memory guard, see DESIGN.md

	// httpRatePerSecond/httpBurst bound how often one plugin's script can
	// call http.get/post/head, independent of the script's own time cap —
	// a malicious or buggy check() can otherwise busy-loop requests against
	// its allow-listed hosts for its whole 10s budget.
	httpRatePerSecond = 5
	httpBurst         = 10
)

// Runtime is one plugin's sandboxed script VM.
type Runtime struct {
	pluginID    string
	allowlist   []string
	storage     *Store
	log         *logging.Logger
	httpLimiter *rate.Limiter

	vm *goja.Runtime
}

// New creates a Runtime for pluginID. allowlist is the plugin manifest's
// HTTP allow-list; storage is the process-wide KV store shared across every
// plugin's Runtime (each plugin only ever touches its own bucket).
func New(pluginID string, allowlist []string, storage *Store, log *logging.Logger) *Runtime {
	if log == nil {
		log = logging.NewDefault("plugin-runtime")
	}
	return &Runtime{
		pluginID:    pluginID,
		allowlist:   allowlist,
		storage:     storage,
		log:         log,
		httpLimiter: rate.NewLimiter(rate.Limit(httpRatePerSecond), httpBurst),
	}
}

// RunCheck executes source's check() function with a defaultTimeCap
// wall-clock ceiling, returning the decoded ProbeResult. A script that runs
// past the ceiling is abandoned via goja's interrupt mechanism and returns
// a timeout error; the Runtime itself is left usable for the next call.
func (r *Runtime) RunCheck(ctx context.Context, source string) (domain.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeCap)
	defer cancel()

	started := time.Now()
	result, err := r.runCheck(ctx, source)
	metrics.RecordPluginCheck(r.pluginID, err == nil && result.Success, time.Since(started))
	return result, err
}

func (r *Runtime) runCheck(ctx context.Context, source string) (domain.ProbeResult, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(maxCallStackSize)
	r.vm = vm

	if err := r.attachHostFunctions(ctx, vm); err != nil {
		return domain.ProbeResult{}, errkit.ScriptError("runtime", err.Error())
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	script := fmt.Sprintf("(function(){\n%s\nreturn check();\n})();", source)
	val, err := vm.RunString(script)
	if err != nil {
		return domain.ProbeResult{}, translateScriptError(err, ctx)
	}

	return decodeCheckResult(val), nil
}

// translateScriptError maps a goja execution failure to a script error
// sub-kind: timeout takes priority over a bare interrupted-error, since
// ctx.Err() is the authoritative reason.
func translateScriptError(err error, ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errkit.ScriptError("timeout", "script exceeded its time cap")
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return errkit.ScriptError("timeout", "script interrupted: "+interrupted.Error())
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return errkit.ScriptError("execution-failed", exc.Error())
	}
	return errkit.ScriptError("runtime", err.Error())
}

// decodeCheckResult implements check()'s return-shape contract: a boolean
// becomes {success: that}; a table becomes its own fields; any other
// return is treated as failure with "No result".
func decodeCheckResult(val goja.Value) domain.ProbeResult {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return domain.ProbeResult{Success: false, Error: "No result"}
	}

	exported := val.Export()
	switch v := exported.(type) {
	case bool:
		res := domain.ProbeResult{Success: v}
		if !v {
			res.Error = "script reported failure"
		}
		return res
	case map[string]any:
		return decodeResultTable(v)
	default:
		return domain.ProbeResult{Success: false, Error: "No result"}
	}
}

func decodeResultTable(v map[string]any) domain.ProbeResult {
	res := domain.ProbeResult{}
	if success, ok := v["success"].(bool); ok {
		res.Success = success
	}
	if latency, ok := numberField(v["latency"]); ok {
		res.LatencyMS = &latency
	}
	if errStr, ok := v["error"].(string); ok {
		res.Error = errStr
	}
	return res
}

func numberField(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
