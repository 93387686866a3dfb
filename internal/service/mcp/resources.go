package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taskmcp/taskmcp/client"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"github.com/taskmcp/taskmcp/pkg/types"
	"go.uber.org/zap"
)

const getResourcePrefix = "task://get/"

// resourceRule is the closed set of routing rules a resource URI can resolve to.
type resourceRule string

const (
	ruleList      resourceRule = "list"
	ruleGet       resourceRule = "get"
	ruleMetrics   resourceRule = "metrics"
	rulePending   resourceRule = "pending"
	ruleCompleted resourceRule = "completed"
	ruleUnknown   resourceRule = "unknown"
)

// exactResources are matched before any parameterized rule.
var exactResources = map[string]resourceRule{
	ResourceList:      ruleList,
	ResourceMetrics:   ruleMetrics,
	ResourcePending:   rulePending,
	ResourceCompleted: ruleCompleted,
}

// statusFilters are the fixed filters of the status-scoped list resources.
var statusFilters = map[resourceRule]types.TaskStatus{
	rulePending:   types.TaskStatusPending,
	ruleCompleted: types.TaskStatusCompleted,
}

// matchResource resolves a URI to its rule. For the get rule, the identifier is everything after
// the final "/" and is returned untouched. A get URI with nothing after the final "/" is unknown.
func matchResource(uri string) (resourceRule, string) {
	if rule, ok := exactResources[uri]; ok {
		return rule, ""
	}
	if strings.HasPrefix(uri, getResourcePrefix) {
		id := uri[strings.LastIndex(uri, "/")+1:]
		if id == "" {
			return ruleUnknown, ""
		}
		return ruleGet, id
	}
	return ruleUnknown, ""
}

// Router serves resource reads. A read never fails: problems are reported inside the returned document.
type Router struct {
	backend TaskBackend
	logger  *zap.Logger
	metrics telemetry.CustomMetrics
}

// NewRouter creates a Router that reads through the given backend.
func NewRouter(backend TaskBackend, logger *zap.Logger, metrics telemetry.CustomMetrics) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopCustomMetrics()
	}
	return &Router{backend: backend, logger: logger, metrics: metrics}
}

// Read returns the JSON document for the given URI.
func (r *Router) Read(ctx context.Context, uri string) string {
	return r.ReadWithFilters(ctx, uri, nil)
}

// ReadWithFilters is Read with extra list filters, eg- a limit. Filters only apply to list-like
// resources, and the status of task://pending and task://completed always wins over a supplied one.
func (r *Router) ReadWithFilters(ctx context.Context, uri string, filters map[string]any) string {
	started := time.Now()
	rule, id := matchResource(uri)
	defer func() {
		r.metrics.RecordResourceRead(ctx, string(rule), time.Since(started))
	}()

	r.logger.Debug("reading resource", zap.String("uri", uri), zap.String("rule", string(rule)))

	var (
		doc any
		err error
	)
	switch rule {
	case ruleList, rulePending, ruleCompleted:
		q := sanitizeArgs(filters)
		if status, ok := statusFilters[rule]; ok {
			q["status"] = string(status)
		}
		doc, err = r.backend.ListTasks(ctx, q)
	case ruleGet:
		doc, err = r.backend.GetTask(ctx, id)
		if client.IsNotFound(err) {
			return errorDocument(fmt.Sprintf("Task %s not found", id))
		}
	case ruleMetrics:
		timeframe, _ := filters["timeframe"].(string)
		doc, err = r.backend.GetMetrics(ctx, timeframe)
	default:
		return errorDocument(fmt.Sprintf("Unknown resource: %s", uri))
	}

	if err != nil {
		r.logger.Error("failed to read resource", zap.String("uri", uri), zap.Error(err))
		kind, msg := classifyError(err)
		if kind == types.ErrorKindTransport {
			msg = transportFailureMessage
		}
		return errorDocument(fmt.Sprintf("Failed to fetch resource: %s", msg))
	}
	return encodeDocument(doc)
}

func errorDocument(msg string) string {
	return encodeDocument(map[string]string{"error": msg})
}

func encodeDocument(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "Internal error: %s"}`, strings.ReplaceAll(err.Error(), `"`, `'`))
	}
	return string(b)
}
