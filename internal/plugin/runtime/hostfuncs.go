package runtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"
)

const httpRequestCeiling = 30 * time.Second

// attachHostFunctions binds every host object a plugin script sees: log,
// json, http, storage.
func (r *Runtime) attachHostFunctions(ctx context.Context, vm *goja.Runtime) error {
	if err := r.attachLog(vm); err != nil {
		return err
	}
	if err := r.attachJSON(vm); err != nil {
		return err
	}
	if err := r.attachHTTP(ctx, vm); err != nil {
		return err
	}
	return r.attachStorage(vm)
}

func (r *Runtime) attachLog(vm *goja.Runtime) error {
	obj := vm.NewObject()
	level := func(name string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			msg := ""
			if len(call.Arguments) > 0 {
				msg = call.Arguments[0].String()
			}
			entry := r.log.WithField("plugin_id", r.pluginID)
			switch name {
			case "warn":
				entry.Warn(msg)
			case "error":
				entry.Error(msg)
			default:
				entry.Info(msg)
			}
			return goja.Undefined()
		}
	}
	for _, fn := range []string{"info", "warn", "error", "debug"} {
		if err := obj.Set(fn, level(fn)); err != nil {
			return err
		}
	}
	return vm.Set("log", obj)
}

// attachJSON exposes encode/decode host functions even though goja already
// has a native JSON object, for parity with the documented host-API
// contract (arrays vs. objects round-trip via encoding/json's own rules).
func (r *Runtime) attachJSON(vm *goja.Runtime) error {
	obj := vm.NewObject()
	encode := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return vm.ToValue("")
		}
		b, err := json.Marshal(call.Arguments[0].Export())
		if err != nil {
			panic(vm.ToValue(err.Error()))
		}
		return vm.ToValue(string(b))
	}
	decode := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		var out any
		if err := json.Unmarshal([]byte(call.Arguments[0].String()), &out); err != nil {
			panic(vm.ToValue(err.Error()))
		}
		return vm.ToValue(out)
	}
	if err := obj.Set("encode", encode); err != nil {
		return err
	}
	if err := obj.Set("decode", decode); err != nil {
		return err
	}
	return vm.Set("json", obj)
}

func (r *Runtime) attachHTTP(ctx context.Context, vm *goja.Runtime) error {
	obj := vm.NewObject()
	client := &http.Client{Timeout: httpRequestCeiling}

	do := func(method string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return httpErrorResult(vm, "missing url argument")
			}
			target := call.Arguments[0].String()
			var body io.Reader
			if method == http.MethodPost && len(call.Arguments) > 1 {
				body = strings.NewReader(call.Arguments[1].String())
			}
			if err := r.httpLimiter.Wait(ctx); err != nil {
				return httpErrorResult(vm, "rate limit: "+err.Error())
			}
			return doHTTPRequest(ctx, vm, client, r.allowlist, method, target, body)
		}
	}

	if err := obj.Set("get", do(http.MethodGet)); err != nil {
		return err
	}
	if err := obj.Set("post", do(http.MethodPost)); err != nil {
		return err
	}
	if err := obj.Set("head", do(http.MethodHead)); err != nil {
		return err
	}
	return vm.Set("http", obj)
}

func doHTTPRequest(ctx context.Context, vm *goja.Runtime, client *http.Client, allowlist []string, method, target string, body io.Reader) goja.Value {
	parsed, err := url.Parse(target)
	if err != nil {
		return httpErrorResult(vm, "invalid url: "+err.Error())
	}
	if !hostAllowed(allowlist, parsed.Hostname()) {
		return httpErrorResult(vm, "host not in plugin allow-list: "+parsed.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return httpErrorResult(vm, err.Error())
	}

	started := time.Now()
	resp, err := client.Do(req)
	latency := float64(time.Since(started).Milliseconds())
	if err != nil {
		return httpErrorResult(vm, err.Error())
	}
	defer resp.Body.Close()

	out := map[string]any{"status": resp.StatusCode, "latency_ms": latency}
	if method != http.MethodHead {
		b, _ := io.ReadAll(resp.Body)
		out["body"] = string(b)
	}
	return vm.ToValue(out)
}

func httpErrorResult(vm *goja.Runtime, msg string) goja.Value {
	return vm.ToValue(map[string]any{"error": msg})
}

func (r *Runtime) attachStorage(vm *goja.Runtime) error {
	obj := vm.NewObject()
	get := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		v, ok := r.storage.Get(r.pluginID, call.Arguments[0].String())
		if !ok {
			return goja.Undefined()
		}
		return vm.ToValue(v)
	}
	set := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		r.storage.Set(r.pluginID, call.Arguments[0].String(), call.Arguments[1].Export())
		return goja.Undefined()
	}
	del := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		r.storage.Delete(r.pluginID, call.Arguments[0].String())
		return goja.Undefined()
	}
	if err := obj.Set("get", get); err != nil {
		return err
	}
	if err := obj.Set("set", set); err != nil {
		return err
	}
	if err := obj.Set("delete", del); err != nil {
		return err
	}
	return vm.Set("storage", obj)
}
