package filter

import (
	"github.com/s0up4200/referral/referral"
)

// Filter decides whether a referral event should be submitted
type Filter interface {
	// Match reports whether the event passes the filter
	Match(event referral.Event) (bool, error)
}

// CompiledFilter is a pre-compiled filter that is safe for concurrent use
type CompiledFilter interface {
	Filter

	// Expression returns the source expression
	Expression() string
}

// Compiler compiles filter expressions
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler is a Compiler that remembers compiled expressions
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}
