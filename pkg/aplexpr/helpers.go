package aplexpr

import (
	"fmt"

	"github.com/ilkoid/apl/pkg/aplctx"
	"github.com/nikolalohinski/gonja"
)

// firstOr returns args[0] if present, otherwise fallback. Go has no default
// parameters, so every helper below that spec §4.3 documents with a
// `default=...` argument is bound as a variadic closure and unwraps its
// trailing optional argument through this helper — letting `inc('n')` and
// `inc('n', 0)` both reach the same call, as gonja's native-function
// binding otherwise calls by exact arity and would reject the short form.
func firstOr(args []interface{}, fallback interface{}) interface{} {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

// bindHelpers installs the spec §4.3 helper table into ctx, each closing
// over the same live Context c so mutations are observed immediately by
// subsequent expressions in the same render (left-to-right, per spec §5).
//
// All mutators return the empty string so their use inside `{{ … }}` emits
// nothing, matching the source contract.
func bindHelpers(ctx gonja.Context, c *aplctx.Context) {
	set := func(key string, value interface{}) string {
		c.Set(key, value)
		return ""
	}
	get := func(key string, def ...interface{}) interface{} {
		return c.Get(key, firstOr(def, nil))
	}
	add := func(key string, delta interface{}, def ...interface{}) string {
		if err := c.Add(key, delta, firstOr(def, 0)); err != nil {
			panic(err) // recovered by Evaluator.Render and returned as a render error
		}
		return ""
	}
	rem := func(key string, delta interface{}, def ...interface{}) string {
		if err := c.Rem(key, delta, firstOr(def, 0)); err != nil {
			panic(err)
		}
		return ""
	}
	inc := func(key string, def ...interface{}) string {
		if err := c.Inc(key, firstOr(def, 0)); err != nil {
			panic(err)
		}
		return ""
	}
	dec := func(key string, def ...interface{}) string {
		if err := c.Dec(key, firstOr(def, 0)); err != nil {
			panic(err)
		}
		return ""
	}
	getJSONPath := func(value interface{}, path string, def ...interface{}) interface{} {
		return aplctx.GetJSONPath(value, path, firstOr(def, nil))
	}

	ctx["set"] = set
	ctx["set_context"] = set
	ctx["get"] = get
	ctx["get_context"] = get
	ctx["add"] = add
	ctx["add_context"] = add
	ctx["rem"] = rem
	ctx["rem_context"] = rem
	ctx["inc"] = inc
	ctx["dec"] = dec
	ctx["get_json_path"] = getJSONPath
}

// helperNames lists every identifier bindHelpers installs, used by the
// strict-undefined pre-pass so helper calls never misreport as unbound
// names.
var helperNames = map[string]bool{
	"set": true, "set_context": true,
	"get": true, "get_context": true,
	"add": true, "add_context": true,
	"rem": true, "rem_context": true,
	"inc": true, "dec": true,
	"get_json_path": true,
}

// RecoverHelperPanic converts a panic raised by a helper (add/rem/inc/dec
// on an unsupported accumulator type) back into an error. Evaluator.Render
// applies it in its own deferred recover to return such panics as template
// render errors; it is exported so callers embedding the engine directly
// can apply the same convention.
func RecoverHelperPanic(rec interface{}) error {
	if rec == nil {
		return nil
	}
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("%v", rec)
}
