package escrow

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	domain "github.com/agentcommerce/acp-core/internal/domain/escrow"
)

// CustomHandler is an async predicate over an escrow and the condition that
// named it (spec.md §4.5: "handler is an async predicate over
// (escrow, condition); handler exceptions -> false").
type CustomHandler func(ctx context.Context, e domain.Escrow, c domain.Condition) bool

// customRegistry is the process-wide Custom Condition Registry: additive,
// overwrite-on-duplicate, safe for concurrent use.
var customRegistry = struct {
	mu       sync.RWMutex
	handlers map[string]CustomHandler
}{handlers: make(map[string]CustomHandler)}

func init() {
	RegisterCustomCondition("always_true", func(context.Context, domain.Escrow, domain.Condition) bool { return true })
	RegisterCustomCondition("always_false", func(context.Context, domain.Escrow, domain.Condition) bool { return false })
	RegisterCustomCondition("time_window", timeWindowHandler)
	RegisterCustomCondition("min_age", minAgeHandler)
}

// RegisterCustomCondition adds or replaces a named handler in the Custom
// Condition Registry.
func RegisterCustomCondition(name string, handler CustomHandler) {
	customRegistry.mu.Lock()
	defer customRegistry.mu.Unlock()
	customRegistry.handlers[name] = handler
}

func lookupCustomCondition(name string) (CustomHandler, bool) {
	customRegistry.mu.RLock()
	defer customRegistry.mu.RUnlock()
	h, ok := customRegistry.handlers[name]
	return h, ok
}

// evalCustom dispatches to the registered handler named by c.Value, which
// for the time_window/min_age built-ins carries its own ":"-delimited
// arguments (e.g. "time_window:START:END").
func evalCustom(ctx context.Context, e domain.Escrow, c domain.Condition) bool {
	name := c.Value
	if idx := strings.IndexByte(c.Value, ':'); idx >= 0 {
		name = c.Value[:idx]
	}
	handler, ok := lookupCustomCondition(name)
	if !ok {
		return false
	}
	return safeInvoke(ctx, e, c, handler)
}

func safeInvoke(ctx context.Context, e domain.Escrow, c domain.Condition, handler CustomHandler) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()
	return handler(ctx, e, c)
}

// timeWindowHandler implements built-in "time_window:START:END": true iff
// now falls within [START, END] (ms since epoch).
func timeWindowHandler(_ context.Context, _ domain.Escrow, c domain.Condition) bool {
	args := strings.Split(c.Value, ":")
	if len(args) != 3 {
		return false
	}
	start, err1 := parseUnixMillis(args[1])
	end, err2 := parseUnixMillis(args[2])
	if err1 != nil || err2 != nil {
		return false
	}
	now := time.Now().UnixMilli()
	return now >= start && now <= end
}

// minAgeHandler implements built-in "min_age:MS": true iff the escrow was
// created at least MS milliseconds ago.
func minAgeHandler(_ context.Context, e domain.Escrow, c domain.Condition) bool {
	args := strings.Split(c.Value, ":")
	if len(args) != 2 {
		return false
	}
	minMs, err := parseUnixMillis(args[1])
	if err != nil {
		return false
	}
	return time.Since(e.CreatedAt).Milliseconds() >= minMs
}

func parseUnixMillis(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
