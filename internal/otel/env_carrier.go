package otel

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// OTEL variable carrier that moves trace context through environment
// variables, so CI steps invoking the CLI one after another share a trace.
//
// Injection stores values internally, Environ renders them as KEY=value
// lines for the next step. Extraction reads the current environment by
// prefix, which avoids collisions and identifies the available keys.
type EnvCarrier struct {
	vars    map[string]*string
	environ func() []string
}

// Ensure `EnvCarrier` implements [propagation.TextMapCarrier]
var _ propagation.TextMapCarrier = (*EnvCarrier)(nil)

func CreateEnvCarrier() EnvCarrier {
	return EnvCarrier{vars: make(map[string]*string), environ: os.Environ}
}

const envPrefix = "ENV_CARRIER_OTEL_"

// prepend prefix and replace all - with _
func mapKey(key string) string {
	return fmt.Sprintf("%s%s", envPrefix, strings.ToUpper(strings.ReplaceAll(key, "-", "_")))
}

// strip prefix and replace all _ with - which might break if the original key contained _ intentionally
func unmapKey(mappedKey string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(mappedKey, envPrefix), "_", "-"))
}

func (c EnvCarrier) lookup(key string) (string, bool) {
	for _, env := range c.environ() {
		name, value, _ := strings.Cut(env, "=")
		if name == key {
			return value, true
		}
	}
	return "", false
}

func (c EnvCarrier) Get(key string) string {
	key = mapKey(key)
	if mapVal := c.vars[key]; mapVal != nil {
		return *mapVal
	}

	value, _ := c.lookup(key)
	return value
}

func (c EnvCarrier) Set(key string, value string) {
	c.vars[mapKey(key)] = &value
}

func (c EnvCarrier) Keys() []string {
	keysSet := make(map[string]bool, len(c.vars))

	for name := range c.vars {
		keysSet[unmapKey(name)] = true
	}

	for _, env := range c.environ() {
		name, _, _ := strings.Cut(env, "=")
		if !strings.HasPrefix(name, envPrefix) {
			continue
		}

		keysSet[unmapKey(name)] = true
	}

	keys := make([]string, 0, len(keysSet))
	for k := range keysSet {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// Renders injected variables as sorted KEY=value lines
//
// Meant to be used after injecting the carrier vars
//
//	otel.GetTextMapPropagator().Inject(ctx, carrier)
func (c EnvCarrier) Environ() []string {
	vars := make([]string, 0, len(c.vars))

	for name, value := range c.vars {
		if value == nil {
			continue
		}

		vars = append(vars, name+"="+*value)
	}
	slices.Sort(vars)

	return vars
}

// Joins the trace passed in by a previous step, if any
func ContextFromEnv(ctx context.Context) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, CreateEnvCarrier())
}

// Environment lines that let the next step join the trace of `ctx`
func EnvFromContext(ctx context.Context) []string {
	carrier := CreateEnvCarrier()
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.Environ()
}
