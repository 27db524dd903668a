package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"sync"

	"github.com/hanpama/reactive-graphql/internal/rx"
	language "github.com/hanpama/reactive-graphql/internal/language"
	schema "github.com/hanpama/reactive-graphql/internal/schema"
)

// recordedError marks an error that was already reported to ec.addError at
// the path where it actually occurred (a resolver failure, or a Non-Null
// violation surfaced by a descendant's own guard). An ancestor's guard must
// not record it a second time at its own, less precise path; it only
// decides whether to keep propagating it or absorb it into a null.
type recordedError struct{ err error }

func (e *recordedError) Error() string { return e.err.Error() }
func (e *recordedError) Unwrap() error { return e.err }

// guardCompletion is the Error Handler: it applies valueType's own
// nullability to any error reaching this type position. A Non-Null position
// re-raises the error (marking it recorded if this is the first guard to see
// it) so it keeps propagating toward the nearest nullable ancestor; a
// nullable position absorbs it into a single null emission and lets the
// stream keep listening for whatever comes next. This runs at every
// position a value can independently be nulled without nulling its
// enclosing structure: an object field (completeValue) and a list element
// (completeListValue).
func guardCompletion(ec *execContext, valueType *schema.TypeRef, path Path, s rx.Stream) rx.Stream {
	return rx.GuardErrors(s, func(err error) (any, error) {
		var recorded *recordedError
		if !errors.As(err, &recorded) {
			ec.addError(err.Error(), path)
			err = &recordedError{err}
		}
		if schema.IsNonNull(valueType) {
			return nil, err
		}
		return nil, nil
	})
}

// completeValue hands every raw emission to completeValueSync via SwitchMap
// (a fresh raw value tears down whatever completion subtree the previous one
// built, canceling any live sub-resolvers, and builds a new one in its
// place), then runs the completed stream through guardCompletion for the
// field's own declared type.
func completeValue(ctx context.Context, ec *execContext, fieldType *schema.TypeRef, fieldNodes []*language.Field, path Path, raw rx.Stream) rx.Stream {
	completed := rx.SwitchMap(raw, func(ctx context.Context, v any) rx.Stream {
		return completeValueSync(ctx, ec, fieldType, fieldNodes, path, v)
	})
	return guardCompletion(ec, fieldType, path, completed)
}

// completeValueSync recurses over one layer of the type wrapper at a time:
// Non-Null unwraps and re-wraps the recursive result with RequireNonNull,
// List fans out to per-index combine-latest, and a named type dispatches to
// Leaf, Object or Abstract completion.
func completeValueSync(ctx context.Context, ec *execContext, fieldType *schema.TypeRef, fieldNodes []*language.Field, path Path, v any) rx.Stream {
	if schema.IsNonNull(fieldType) {
		inner := schema.Unwrap(fieldType)
		innerStream := completeValueSync(ctx, ec, inner, fieldNodes, path, v)
		return rx.RequireNonNull(innerStream, func() error {
			err := fmt.Errorf("Cannot return null for non-nullable field %s.", pathToString(path))
			ec.addError(err.Error(), path)
			return &recordedError{err}
		})
	}

	if rx.IsNullish(v) {
		return rx.Just(nil)
	}

	if schema.IsList(fieldType) {
		return completeListValue(ctx, ec, fieldType, fieldNodes, path, v)
	}

	namedType := schema.GetNamedType(fieldType)
	typeObj := ec.schema.Types[namedType]
	if typeObj == nil {
		ec.addError(fmt.Sprintf("Unknown type %q.", namedType), path)
		return rx.Just(nil)
	}

	switch {
	case typeObj.IsLeaf():
		return completeLeafValue(ec, typeObj, path, v)
	case typeObj.IsObject():
		return completeObjectValue(ctx, ec, typeObj, fieldNodes, path, v)
	case typeObj.IsAbstract():
		return completeAbstractValue(ctx, ec, typeObj, fieldNodes, path, v)
	default:
		ec.addError(fmt.Sprintf("Cannot complete value of kind %q.", typeObj.Kind), path)
		return rx.Just(nil)
	}
}

func completeListValue(ctx context.Context, ec *execContext, listType *schema.TypeRef, fieldNodes []*language.Field, path Path, v any) rx.Stream {
	items, err := toSlice(v)
	if err != nil {
		ec.addError(err.Error(), path)
		return rx.Just(nil)
	}
	if len(items) == 0 {
		return rx.Just([]any{})
	}

	inner := schema.Unwrap(listType)
	keys := make([]string, len(items))
	children := make(map[string]rx.Stream, len(items))
	for i, item := range items {
		k := strconv.Itoa(i)
		keys[i] = k
		itemPath := appendPath(path, i)
		children[k] = guardCompletion(ec, inner, itemPath, completeValueSync(ctx, ec, inner, fieldNodes, itemPath, item))
	}

	combined := rx.CombineLatest(keys, children)
	return rx.Map(combined, func(m any) any {
		obj := m.(map[string]any)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = obj[k]
		}
		return out
	})
}

func toSlice(v any) ([]any, error) {
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected an iterable value for a list field, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func completeLeafValue(ec *execContext, typeObj *schema.Type, path Path, v any) rx.Stream {
	if typeObj.Serialize == nil {
		return rx.Just(v)
	}
	out, err := typeObj.Serialize(v)
	if err != nil {
		ec.addError(err.Error(), path)
		return rx.Just(nil)
	}
	if isInvalidLeaf(out) {
		ec.addError(fmt.Sprintf("%s cannot represent value: %v", typeObj.Name, v), path)
		return rx.Just(nil)
	}
	return rx.Just(out)
}

func isInvalidLeaf(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}

func completeObjectValue(ctx context.Context, ec *execContext, typeObj *schema.Type, fieldNodes []*language.Field, path Path, v any) rx.Stream {
	if typeObj.IsTypeOf == nil {
		return evaluateObjectSubSelection(ctx, ec, typeObj, fieldNodes, path, v)
	}
	check := awaitIsTypeOf(ctx, ec, typeObj, path, v)
	return rx.SwitchMap(check, func(ctx context.Context, ok any) rx.Stream {
		if b, _ := ok.(bool); !b {
			ec.addError(fmt.Sprintf("Expected value of type %q but got: %s.", typeObj.Name, describeValue(v)), path)
			return rx.Just(nil)
		}
		return evaluateObjectSubSelection(ctx, ec, typeObj, fieldNodes, path, v)
	})
}

func awaitIsTypeOf(ctx context.Context, ec *execContext, typeObj *schema.Type, path Path, v any) rx.Stream {
	res, err := typeObj.IsTypeOf(ctx, v)
	if err != nil {
		ec.addError(err.Error(), path)
		return rx.Just(false)
	}
	return normalizeAwaitable(res)
}

func evaluateObjectSubSelection(ctx context.Context, ec *execContext, typeObj *schema.Type, fieldNodes []*language.Field, path Path, v any) rx.Stream {
	sub := ec.mergeSelectionSet(typeObj, fieldNodes)
	fields := collectFields(ec, typeObj, sub)
	return evaluateSelectionSet(ctx, ec, typeObj, v, path, fields, ReadMode)
}

func completeAbstractValue(ctx context.Context, ec *execContext, typeObj *schema.Type, fieldNodes []*language.Field, path Path, v any) rx.Stream {
	var resolved rx.Stream
	if typeObj.ResolveType != nil {
		res, err := typeObj.ResolveType(ctx, v)
		if err != nil {
			ec.addError(err.Error(), path)
			return rx.Just(nil)
		}
		resolved = normalizeAwaitable(res)
	} else {
		resolved = rx.Func(func(ctx context.Context) <-chan rx.Event {
			ch := make(chan rx.Event, 1)
			go func() {
				defer close(ch)
				name, err := defaultResolveType(ctx, ec, typeObj, v)
				if err != nil {
					ch <- rx.Event{Err: err}
					return
				}
				ch <- rx.Event{Value: name}
			}()
			return ch
		})
	}

	return rx.SwitchMap(resolved, func(ctx context.Context, name any) rx.Stream {
		typeName, _ := name.(string)
		obj := ec.schema.Types[typeName]
		if obj == nil || !obj.IsObject() || !isPossibleType(typeObj, typeName) {
			ec.addError(fmt.Sprintf(
				"Abstract type %q must resolve to an Object type at runtime for field %s. Either the %q type should provide a \"resolveType\" function or each possible type should provide an \"isTypeOf\" function.",
				typeObj.Name, pathToString(path), typeObj.Name,
			), path)
			return rx.Just(nil)
		}
		return completeObjectValue(ctx, ec, obj, fieldNodes, path, v)
	})
}

func isPossibleType(abstractType *schema.Type, name string) bool {
	for _, p := range abstractType.PossibleTypes {
		if p == name {
			return true
		}
	}
	return false
}

// defaultResolveType implements the fallback discovery strategy for an
// abstract type with no Type.ResolveType set: first a conventional
// type-name hint on the value itself, then each possible type's IsTypeOf in
// declaration order. Deferred predicates run concurrently but the first
// match accepted is still the earliest one in declaration order, not the
// fastest to finish.
func defaultResolveType(ctx context.Context, ec *execContext, abstractType *schema.Type, v any) (string, error) {
	if hinter, ok := v.(TypeNameHinter); ok {
		if n := hinter.GraphQLTypeName(); n != "" {
			return n, nil
		}
	}
	if m, ok := v.(map[string]any); ok {
		if n, ok2 := m["__typename"].(string); ok2 && n != "" {
			return n, nil
		}
	}

	possible := abstractType.PossibleTypes
	results := make([]bool, len(possible))
	errs := make([]error, len(possible))
	var wg sync.WaitGroup
	for i, name := range possible {
		obj := ec.schema.Types[name]
		if obj == nil || obj.IsTypeOf == nil {
			continue
		}
		wg.Add(1)
		go func(i int, obj *schema.Type) {
			defer wg.Done()
			res, err := obj.IsTypeOf(ctx, v)
			if err != nil {
				errs[i] = err
				return
			}
			b, err := awaitBool(res)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = b
		}(i, obj)
	}
	wg.Wait()

	for i, name := range possible {
		if errs[i] != nil {
			return "", errs[i]
		}
		if results[i] {
			return name, nil
		}
	}
	return "", fmt.Errorf("could not resolve a concrete type for abstract type %q", abstractType.Name)
}

func awaitBool(v any) (bool, error) {
	if d, ok := v.(schema.Deferred); ok {
		val, err := d()
		if err != nil {
			return false, err
		}
		b, _ := val.(bool)
		return b, nil
	}
	b, _ := v.(bool)
	return b, nil
}

func describeValue(v any) string {
	return fmt.Sprintf("%v", v)
}
