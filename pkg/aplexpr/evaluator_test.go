package aplexpr

import (
	"strings"
	"testing"

	"github.com/ilkoid/apl/pkg/aplctx"
)

func TestRenderPlainInterpolation(t *testing.T) {
	c := aplctx.New(nil, nil)
	c.Set("name", "fred")

	out, err := New().Render("hello {{ name }}", c)
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello fred" {
		t.Errorf("got %q", out)
	}
}

func TestRenderSetHelperMutatesLiveContext(t *testing.T) {
	c := aplctx.New(nil, nil)

	_, err := New().Render(`{{ set('x', 1) }}{{ get('x', 0) }}`, c)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Get("x", nil); got != 1 {
		t.Errorf("expected context to be mutated in place, got %v", got)
	}
}

func TestRenderIncLoop(t *testing.T) {
	c := aplctx.New(nil, nil)
	for i := 0; i < 5; i++ {
		if _, err := New().Render(`{{ inc('n', 0) }}`, c); err != nil {
			t.Fatal(err)
		}
	}
	if got := c.Get("n", nil); got != 5 {
		t.Errorf("expected n == 5, got %v", got)
	}
}

func TestRenderIncLoopOmittedDefault(t *testing.T) {
	c := aplctx.New(nil, nil)
	for i := 0; i < 5; i++ {
		if _, err := New().Render(`{{ inc('n') }}`, c); err != nil {
			t.Fatal(err)
		}
	}
	if got := c.Get("n", nil); got != 5 {
		t.Errorf("expected n == 5, got %v", got)
	}
}

func TestRenderGetOmittedDefaultDoesNotArityFail(t *testing.T) {
	c := aplctx.New(nil, nil)
	if _, err := New().Render(`{{ get('missing') }}`, c); err != nil {
		t.Fatalf("single-argument get() should be valid per spec §4.3, got error: %v", err)
	}
}

func TestRenderUndefinedNameFails(t *testing.T) {
	c := aplctx.New(nil, nil)
	_, err := New().Render("{{ totally_unbound_name }}", c)
	if err == nil {
		t.Fatal("expected strict-undefined error")
	}
	if !strings.Contains(err.Error(), "totally_unbound_name") {
		t.Errorf("error should name the offending identifier: %v", err)
	}
}

func TestRenderKnownKeywordsAndFiltersAreNotFlagged(t *testing.T) {
	c := aplctx.New(nil, nil)
	c.Set("items", []any{"a", "b"})

	_, err := New().Render(`{% for x in items %}{{ x | upper }}{% endfor %}`, c)
	if err != nil {
		t.Fatal(err)
	}
}

func TestRenderAttributeAccessOnlyRequiresRootBound(t *testing.T) {
	c := aplctx.New(nil, nil)
	c.Set("u", map[string]any{"name": "fred"})

	out, err := New().Render("{{ u.name }}", c)
	if err != nil {
		t.Fatal(err)
	}
	if out != "fred" {
		t.Errorf("got %q", out)
	}
}
