package filter

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/s0up4200/referral/referral"
)

var testNow = time.Date(2023, 9, 7, 12, 0, 0, 0, time.UTC)

func newTestCompiler(opts ...ExprCompilerOption) CachingCompiler {
	opts = append([]ExprCompilerOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewExprCompiler(opts...)
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `isType("Refer")`,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasEmail("unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown field",
			expression: `Colour == "red"`,
			wantErr:    true,
		},
		{
			name:       "not a boolean",
			expression: `PurchaseAmount * 2`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `isType("Purchase") and PurchaseAmount >= 50 and daysSince(ActivityTime) < 30`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := newTestCompiler().Compile(tt.expression)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				var ce *CompilationError
				if !errors.As(err, &ce) {
					t.Errorf("expected *CompilationError, got %T", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter.Expression() != strings.TrimSpace(tt.expression) {
				t.Errorf("Expression() = %q", filter.Expression())
			}
		})
	}
}

func TestMatch(t *testing.T) {
	joined := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	purchase := referral.Event{
		ReferralCode:     "M-1SUMMER",
		Type:             referral.EventPurchase,
		Emails:           []string{"Friend@Example.com"},
		ContactID:        "003",
		FirstName:        "Ada",
		JoiningDate:      &joined,
		ProductID:        "01t",
		PurchaseAmount:   75,
		PurchaseQuantity: 3,
		ActivityTime:     testNow.AddDate(0, 0, -10),
	}
	refer := referral.Event{
		ReferralCode: "M-2SUMMER",
		Emails:       []string{"someone@other.org"},
	}

	tests := []struct {
		name       string
		expression string
		event      referral.Event
		expected   bool
	}{
		{"type helper", `isType("purchase")`, purchase, true},
		{"empty type is refer", `Type == "Refer"`, refer, true},
		{"amount", `PurchaseAmount > 50 and PurchaseQuantity == 3`, purchase, true},
		{"email exact", `hasEmail("friend@example.com")`, purchase, true},
		{"email domain", `emailDomain("example.com")`, purchase, true},
		{"email domain with at", `emailDomain("@other.org")`, refer, true},
		{"email domain miss", `emailDomain("example.com")`, refer, false},
		{"code prefix", `startsWith(ReferralCode, "m-1")`, purchase, true},
		{"contains", `contains(FirstName, "DA")`, purchase, true},
		{"recent activity", `daysSince(ActivityTime) <= 10`, purchase, true},
		{"activity window", `ActivityTime > daysAgo(5)`, purchase, false},
		{"joining date", `JoiningDate < parseDate("2023-02-01")`, purchase, true},
		{"list membership", `"someone@other.org" in Emails`, refer, true},
		{"struct access", `Event.ProductID == "01t"`, purchase, true},
		{"negation", `not isType("Purchase")`, refer, true},
	}

	compiler := newTestCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			if err != nil {
				t.Fatalf("failed to compile: %v", err)
			}
			got, err := filter.Match(tt.event)
			if err != nil {
				t.Fatalf("unexpected evaluation error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Match() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMatchEvaluationError(t *testing.T) {
	filter, err := newTestCompiler().Compile(`Emails[3] == "x"`)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	_, err = filter.Match(referral.Event{ReferralCode: "C", Emails: []string{"a@b.c"}})
	var ee *EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EvaluationError, got %v", err)
	}
	if ee.ReferralCode != "C" {
		t.Errorf("ReferralCode = %q", ee.ReferralCode)
	}
}

func TestParseDateFailureIsEvaluationError(t *testing.T) {
	filter, err := newTestCompiler().Compile(`ActivityTime > parseDate("2023-13-45")`)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	matched, err := filter.Match(referral.Event{ReferralCode: "C", Emails: []string{"a@b.c"}})
	var ee *EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EvaluationError, got matched=%v err=%v", matched, err)
	}
	if !strings.Contains(ee.Err.Error(), "cannot decode date string") {
		t.Errorf("unexpected cause: %v", ee.Err)
	}
}

func TestCustomFunctions(t *testing.T) {
	compiler := newTestCompiler(WithCustomFunctions(map[string]any{
		"vip": func(code string) bool { return strings.HasSuffix(code, "VIP") },
	}))

	filter, err := compiler.Compile(`vip(ReferralCode)`)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	got, _ := filter.Match(referral.Event{ReferralCode: "X-VIP"})
	if !got {
		t.Errorf("expected custom function to match")
	}
}

func TestCompilerCache(t *testing.T) {
	compiler := newTestCompiler(WithCache(2))

	a1, _ := compiler.Compile(`isType("Refer")`)
	a2, _ := compiler.Compile(`  isType("Refer")  `)
	if a1 != a2 {
		t.Errorf("expected cached filter to be reused")
	}

	compiler.Compile(`isType("Purchase")`)
	compiler.Compile(`isType("Enrollment")`)
	if compiler.Size() != 2 {
		t.Errorf("Size() = %d, want 2", compiler.Size())
	}

	a3, _ := compiler.Compile(`isType("Refer")`)
	if a3 == a1 {
		t.Errorf("expected least recently used entry to be evicted")
	}

	compiler.Clear()
	if compiler.Size() != 0 {
		t.Errorf("Size() after Clear = %d", compiler.Size())
	}

	if NewExprCompiler().Size() != 0 {
		t.Errorf("uncached compiler should report size 0")
	}
}

func TestLRUCacheConcurrentAccess(t *testing.T) {
	cache := newLRUCache[int](8)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i%10))
			cache.Put(key, i)
			cache.Get(key)
		}()
	}
	wg.Wait()

	if cache.Len() > 8 {
		t.Errorf("Len() = %d, want <= 8", cache.Len())
	}
}

func TestManager(t *testing.T) {
	m := NewManager(WithCompiler(newTestCompiler()))

	err := m.RegisterFilters(map[string]string{
		"big-purchases": `isType("Purchase") and PurchaseAmount >= 100`,
		"broken":        `PurchaseAmount >`,
	})
	if err == nil {
		t.Fatalf("expected compile error")
	}
	if len(m.ListFilters()) != 0 {
		t.Errorf("no filter should be registered after a failure")
	}

	err = m.RegisterFilters(map[string]string{
		"big-purchases": `isType("Purchase") and PurchaseAmount >= 100`,
		"company":       `emailDomain("example.com")`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.ListFilters(); len(got) != 2 || got[0] != "big-purchases" || got[1] != "company" {
		t.Errorf("ListFilters() = %v", got)
	}

	named, err := m.Resolve("company")
	if err != nil || named.Expression() != `emailDomain("example.com")` {
		t.Errorf("Resolve(name) = %v, %v", named, err)
	}
	inline, err := m.Resolve(`ProductID != ""`)
	if err != nil || inline.Expression() != `ProductID != ""` {
		t.Errorf("Resolve(expression) = %v, %v", inline, err)
	}
	if _, err := m.Resolve("no-such-filter"); err == nil {
		t.Errorf("expected unknown name to fail as an expression")
	}
}

func TestApply(t *testing.T) {
	filter, err := newTestCompiler().Compile(`emailDomain("example.com")`)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	events := []referral.Event{
		{ReferralCode: "A", Emails: []string{"a@example.com"}},
		{ReferralCode: "B", Emails: []string{"b@other.org"}},
		{ReferralCode: "C", Emails: []string{"c@example.com"}},
	}
	sel, err := Apply(filter, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Matched) != 2 || sel.Matched[0].ReferralCode != "A" || sel.Matched[1].ReferralCode != "C" {
		t.Errorf("Matched = %+v", sel.Matched)
	}
	if len(sel.Skipped) != 1 || sel.Skipped[0] != 1 {
		t.Errorf("Skipped = %v", sel.Skipped)
	}

	failing, _ := newTestCompiler().Compile(`Emails[5] == ""`)
	if _, err := Apply(failing, events); err == nil {
		t.Errorf("expected evaluation error")
	}
}
