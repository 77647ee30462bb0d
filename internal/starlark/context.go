package starlark

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapsite/internal/markup"
)

// ExecutionContext provides all globals for evaluating the expressions of one
// page. It is safe for concurrent use.
type ExecutionContext struct {
	// Site is exposed as site.url, site.default_language, site.languages
	Site *SiteInfo

	// Lang is exposed as lang.name, lang.native, lang.menu
	Lang *LangInfo

	// Page is exposed as page.source, page.output, page.url
	Page *PageInfo

	// Params is the free-form params dict from the site config
	Params starlark.Value

	globals starlark.StringDict
	pool    *ThreadPool
}

// ContextOption is a functional option for configuring ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithParams sets the params global.
func WithParams(params starlark.Value) ContextOption {
	return func(ctx *ExecutionContext) {
		ctx.Params = params
	}
}

// WithThreadPool reuses threads from pool instead of allocating one per
// evaluation.
func WithThreadPool(pool *ThreadPool) ContextOption {
	return func(ctx *ExecutionContext) {
		ctx.pool = pool
	}
}

// NewContext creates a new execution context.
func NewContext(site *SiteInfo, lang *LangInfo, page *PageInfo, opts ...ContextOption) *ExecutionContext {
	ctx := &ExecutionContext{
		Site: site,
		Lang: lang,
		Page: page,
	}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.pool == nil {
		ctx.pool = NewThreadPool(1)
	}
	ctx.globals = Predeclared(ctx.Site, ctx.Lang, ctx.Page, ctx.Params)
	return ctx
}

// Globals returns the globals dictionary for Starlark execution.
func (ctx *ExecutionContext) Globals() starlark.StringDict {
	return ctx.globals
}

// EvalExpr evaluates a single Starlark expression and returns the result.
func (ctx *ExecutionContext) EvalExpr(expr string, origin markup.Origin) (starlark.Value, error) {
	thread := ctx.pool.Get(origin.File)
	defer ctx.pool.Put(thread)

	// starlark rejects leading indentation
	src := strings.TrimSpace(expr)

	result, err := starlark.Eval(thread, origin.File, src, ctx.globals) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	if err != nil {
		return nil, &EvalError{
			Origin:  origin,
			Expr:    expr,
			Message: err.Error(),
		}
	}
	return result, nil
}

// Eval evaluates expr and returns its string form. None renders as "".
func (ctx *ExecutionContext) Eval(expr string, origin markup.Origin) (string, error) {
	result, err := ctx.EvalExpr(expr, origin)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case starlark.String:
		return string(v), nil
	case starlark.NoneType:
		return "", nil
	default:
		return result.String(), nil
	}
}

// Truth evaluates expr and reports its Starlark truth value.
func (ctx *ExecutionContext) Truth(expr string, origin markup.Origin) (bool, error) {
	result, err := ctx.EvalExpr(expr, origin)
	if err != nil {
		return false, err
	}
	return bool(result.Truth()), nil
}

// EvalError represents an error during Starlark expression evaluation.
type EvalError struct {
	Origin  markup.Origin
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: error evaluating %q: %s", e.Origin, e.Expr, e.Message)
}
