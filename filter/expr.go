package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/referral/force"
	"github.com/s0up4200/referral/referral"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	compiler   *exprCompiler
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds helper functions available to every expression
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.custom, funcs)
	}
}

// WithClock sets the clock behind now(), daysAgo() and daysSince()
func WithClock(now func() time.Time) ExprCompilerOption {
	return func(c *exprCompiler) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDateLayouts sets the layouts parseDate() tries, in order
func WithDateLayouts(layouts ...string) ExprCompilerOption {
	return func(c *exprCompiler) {
		c.dates = force.NewDecoder(layouts...)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		custom: make(map[string]any),
		now:    time.Now,
		dates:  force.NewDecoder(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type exprCompiler struct {
	custom map[string]any
	cache  *lruCache[CompiledFilter]
	now    func() time.Time
	dates  *force.Decoder
}

// Compile compiles an expression into an executable filter. Unknown
// identifiers are compile errors.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.environment(referral.Event{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		compiler:   c,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// Match evaluates the filter against an event
func (f *exprFilter) Match(event referral.Event) (bool, error) {
	result, err := expr.Run(f.program, f.compiler.environment(event))
	if err != nil {
		return false, &EvaluationError{
			Expression:   f.expression,
			ReferralCode: event.ReferralCode,
			Err:          err,
		}
	}
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// environment exposes the event fields and helper functions to an expression
func (c *exprCompiler) environment(event referral.Event) map[string]any {
	env := make(map[string]any, 32)
	c.addHelperFunctions(env)
	maps.Copy(env, c.custom)

	eventType := event.Type
	if eventType == "" {
		eventType = referral.EventRefer
	}
	var joined time.Time
	if event.JoiningDate != nil {
		joined = *event.JoiningDate
	}

	env["Event"] = event
	env["ReferralCode"] = event.ReferralCode
	env["Type"] = string(eventType)
	env["Emails"] = slices.Clone(event.Emails)
	env["ContactID"] = event.ContactID
	env["FirstName"] = event.FirstName
	env["LastName"] = event.LastName
	env["JoiningDate"] = joined
	env["ProductID"] = event.ProductID
	env["PurchaseAmount"] = event.PurchaseAmount
	env["PurchaseQuantity"] = event.PurchaseQuantity
	env["OrderReferenceID"] = event.OrderReferenceID
	env["ActivityTime"] = event.ActivityTime

	env["isType"] = func(t string) bool {
		return strings.EqualFold(string(eventType), t)
	}
	env["hasEmail"] = createHasEmailFunc(event.Emails)
	env["emailDomain"] = createEmailDomainFunc(event.Emails)

	return env
}

func (c *exprCompiler) addHelperFunctions(env map[string]any) {
	// Date helpers
	env["now"] = c.now
	env["daysSince"] = func(t time.Time) int {
		return int(c.now().Sub(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return c.now().AddDate(0, 0, -days)
	}
	env["parseDate"] = func(s string) (time.Time, error) {
		return c.dates.ParseDate(s)
	}
	// String helpers
	env["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
}

func createHasEmailFunc(emails []string) func(string) bool {
	return func(addr string) bool {
		return slices.ContainsFunc(emails, func(e string) bool {
			return strings.EqualFold(e, addr)
		})
	}
}

func createEmailDomainFunc(emails []string) func(string) bool {
	return func(domain string) bool {
		suffix := "@" + strings.ToLower(strings.TrimPrefix(domain, "@"))
		return slices.ContainsFunc(emails, func(e string) bool {
			return strings.HasSuffix(strings.ToLower(e), suffix)
		})
	}
}
