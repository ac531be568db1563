package akita

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akita-go/akita/logger"
)

// InterceptorType classifies an interceptor for diagnostics.
type InterceptorType string

// Interceptor types.
const (
	TypeTenant      InterceptorType = "tenant"
	TypePagination  InterceptorType = "pagination"
	TypeFieldFill   InterceptorType = "field_fill"
	TypePerformance InterceptorType = "performance"
	TypeAudit       InterceptorType = "audit"
	TypeMetrics     InterceptorType = "metrics"
	TypeLogging     InterceptorType = "logging"
	TypeCustom      InterceptorType = "custom"
)

// OperationType tags what kind of statement an execution carries.
type OperationType string

// Operation types.
const (
	OpSelect OperationType = "select"
	OpInsert OperationType = "insert"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
	OpRaw    OperationType = "raw"
)

// ExecuteContext is the mutable bag carried through one execution: the
// rendered SQL, its parameters, interceptor metadata and eventually the
// outcome. It lives from dispatch until the last after-hook returns.
type ExecuteContext struct {
	Context      context.Context
	ID           uuid.UUID
	Operation    OperationType
	SQL          string
	Vars         []interface{}
	Dialect      Dialect
	StartedAt    time.Time
	RowsAffected int64
	Err          error

	mu       sync.Mutex
	metadata map[string]interface{}
}

func newExecuteContext(ctx context.Context, op OperationType, sql string, vars []interface{}) *ExecuteContext {
	return &ExecuteContext{
		Context:   ctx,
		ID:        uuid.New(),
		Operation: op,
		SQL:       sql,
		Vars:      vars,
		StartedAt: time.Now(),
	}
}

// Set stores interceptor metadata under key.
func (ec *ExecuteContext) Set(key string, v interface{}) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.metadata == nil {
		ec.metadata = map[string]interface{}{}
	}
	ec.metadata[key] = v
}

// Get reads interceptor metadata stored under key.
func (ec *ExecuteContext) Get(key string) (interface{}, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.metadata[key]
	return v, ok
}

// Interceptor wraps every statement execution with before/after hooks.
// BeforeExecute returning an error aborts the execution: the driver is never
// called and AfterExecute runs, in reverse order, only for interceptors whose
// BeforeExecute already completed.
type Interceptor interface {
	Name() string
	InterceptorType() InterceptorType
	// Order sorts the chain ascending; lower runs first. Ties keep
	// registration order.
	Order() int
	BeforeExecute(ec *ExecuteContext) error
	AfterExecute(ec *ExecuteContext, err error)
}

type interceptorRegistration struct {
	interceptor Interceptor
	seq         int
	enabled     bool
}

// interceptorChain keeps registrations and freezes the effective pipeline the
// first time it is used after a change.
type interceptorChain struct {
	mu            sync.Mutex
	registrations []*interceptorRegistration
	pipeline      []Interceptor
	dirty         bool
}

func newInterceptorChain() *interceptorChain {
	return &interceptorChain{}
}

// Register adds an interceptor, enabled by default.
func (c *interceptorChain) Register(i Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations = append(c.registrations, &interceptorRegistration{
		interceptor: i,
		seq:         len(c.registrations),
		enabled:     true,
	})
	c.dirty = true
}

// Enable turns the named interceptor on.
func (c *interceptorChain) Enable(name string) {
	c.setEnabled(name, true)
}

// Disable turns the named interceptor off without unregistering it.
func (c *interceptorChain) Disable(name string) {
	c.setEnabled(name, false)
}

func (c *interceptorChain) setEnabled(name string, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, reg := range c.registrations {
		if reg.interceptor.Name() == name {
			reg.enabled = enabled
			c.dirty = true
		}
	}
}

// effective returns the enabled subset sorted ascending by Order, ties broken
// by registration order.
func (c *interceptorChain) effective() []Interceptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipeline == nil || c.dirty {
		regs := make([]*interceptorRegistration, 0, len(c.registrations))
		for _, reg := range c.registrations {
			if reg.enabled {
				regs = append(regs, reg)
			}
		}
		sort.SliceStable(regs, func(i, j int) bool {
			return regs[i].interceptor.Order() < regs[j].interceptor.Order()
		})
		pipeline := make([]Interceptor, len(regs))
		for i, reg := range regs {
			pipeline[i] = reg.interceptor
		}
		c.pipeline = pipeline
		c.dirty = false
	}
	return c.pipeline
}

// run wraps fn with the chain. On a before-hook error the driver call is
// skipped and the abort error is handed to the already-entered interceptors'
// after-hooks in reverse order (stack discipline); interceptors that never
// entered see no hook at all.
func (c *interceptorChain) run(ec *ExecuteContext, fn func(*ExecuteContext) error) error {
	pipeline := c.effective()

	entered := 0
	for _, i := range pipeline {
		if err := i.BeforeExecute(ec); err != nil {
			abort := &InterceptorError{Interceptor: i.Name(), Err: err}
			ec.Err = abort
			for j := entered - 1; j >= 0; j-- {
				pipeline[j].AfterExecute(ec, abort)
			}
			return abort
		}
		entered++
	}

	err := fn(ec)
	ec.Err = err
	for j := len(pipeline) - 1; j >= 0; j-- {
		pipeline[j].AfterExecute(ec, err)
	}
	return err
}

// LoggingInterceptor traces every statement through the configured logger.
type LoggingInterceptor struct {
	Logger    logger.Interface
	OrderKey  int
	Threshold time.Duration
}

// NewLoggingInterceptor creates a logging interceptor with the given backend.
func NewLoggingInterceptor(l logger.Interface) *LoggingInterceptor {
	return &LoggingInterceptor{Logger: l, OrderKey: 100}
}

func (l *LoggingInterceptor) Name() string { return "akita:logging" }

func (l *LoggingInterceptor) InterceptorType() InterceptorType { return TypeLogging }

func (l *LoggingInterceptor) Order() int { return l.OrderKey }

func (l *LoggingInterceptor) BeforeExecute(ec *ExecuteContext) error {
	ec.Set("logging:begin", time.Now())
	return nil
}

func (l *LoggingInterceptor) AfterExecute(ec *ExecuteContext, err error) {
	begin := ec.StartedAt
	if v, ok := ec.Get("logging:begin"); ok {
		if t, ok := v.(time.Time); ok {
			begin = t
		}
	}
	l.Logger.Trace(ec.Context, begin, func() (string, int64) {
		sql := ec.SQL
		vars := append([]interface{}(nil), ec.Vars...)
		if filter, ok := l.Logger.(logger.ParamsFilter); ok {
			sql, vars = filter.ParamsFilter(ec.Context, sql, vars...)
		}
		if ec.Dialect != nil {
			sql = ec.Dialect.Explain(sql, vars...)
		}
		return sql, ec.RowsAffected
	}, err)
}
