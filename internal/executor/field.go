package executor

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hanpama/reactive-graphql/internal/rx"
	language "github.com/hanpama/reactive-graphql/internal/language"
	schema "github.com/hanpama/reactive-graphql/internal/schema"
)

// TypeNameHinter lets a source value name its own concrete GraphQL type,
// the fast path defaultResolveType checks before falling back to
// declaration-order IsTypeOf predicates.
type TypeNameHinter interface {
	GraphQLTypeName() string
}

// normalizeAwaitable is the three-way normalization every resolver-shaped
// boundary applies to a value that may be plain, a schema.Deferred, or
// already an rx.Stream.
func normalizeAwaitable(v any) rx.Stream {
	switch val := v.(type) {
	case rx.Stream:
		return val
	case schema.Deferred:
		return deferredToStream(val)
	default:
		return rx.Just(v)
	}
}

func deferredToStream(d schema.Deferred) rx.Stream {
	return rx.Func(func(ctx context.Context) <-chan rx.Event {
		ch := make(chan rx.Event, 1)
		go func() {
			defer close(ch)
			val, err := d()
			var ev rx.Event
			if err != nil {
				ev = rx.Event{Err: err}
			} else {
				ev = rx.Event{Value: val}
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}()
		return ch
	})
}

// safeResolve invokes a resolver, recovering a panic the way a thrown
// exception is recovered in the reference engine: a panicking error value
// is used as-is, anything else is coerced into one.
func safeResolve(ctx context.Context, resolver schema.FieldResolveFn, source any, args map[string]any, info *schema.ResolveInfo) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("Unexpected error value: %#v", r)
			}
		}
	}()
	return resolver(ctx, source, args, info)
}

// DefaultFieldResolver projects the field's name (not its alias) off the
// parent value: a map entry for map[string]any sources, or otherwise the
// exported struct field of that name with its first letter upper-cased,
// falling back to the exported field whose name matches ignoring case (so
// "id" finds ID). It returns schema.Undefined when the parent value has no
// such attribute at all.
func DefaultFieldResolver(_ context.Context, source any, _ map[string]any, info *schema.ResolveInfo) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		if v, ok := m[info.FieldName]; ok {
			return v, nil
		}
		return schema.Undefined, nil
	}
	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return schema.Undefined, nil
	}
	name := strings.ToUpper(info.FieldName[:1]) + info.FieldName[1:]
	fv := rv.FieldByName(name)
	if !fv.IsValid() {
		fv = rv.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, info.FieldName) })
	}
	if !fv.IsValid() || !fv.CanInterface() {
		return schema.Undefined, nil
	}
	return fv.Interface(), nil
}

func wrapResolverError(err error) error {
	return fmt.Errorf("error resolving field: %w", err)
}

// buildFieldValueStream is the Field Resolver: it looks up the field
// definition, coerces arguments, invokes the resolver (the field's own, or
// the context's default), and hands the normalized raw stream to the Value
// Completer. included is false when the response key should not appear in
// the result object at all: an undeclared field, or a resolver that
// returned schema.Undefined.
func buildFieldValueStream(ctx context.Context, ec *execContext, parentType *schema.Type, parentValue any, fieldNodes []*language.Field, path Path) (stream rx.Stream, included bool) {
	name := fieldNodes[0].Name
	if name == "__typename" {
		return rx.Just(parentType.Name), true
	}

	fieldDef := lookupField(parentType, name)
	if fieldDef == nil {
		ec.reportUnknownField(parentType, name, path)
		return nil, false
	}

	args := coerceArgumentValues(fieldDef, fieldNodes[0].Arguments, ec.variableValues, ec, path)
	resolver := fieldDef.Resolve
	if resolver == nil {
		resolver = ec.defaultResolver
	}
	info := &schema.ResolveInfo{ParentType: parentType.Name, FieldName: name, ReturnType: fieldDef.Type}

	raw, err := safeResolve(ctx, resolver, parentValue, args, info)
	if err == nil && raw == schema.Undefined {
		return nil, false
	}

	var rawStream rx.Stream
	if err != nil {
		rawStream = rx.Raised(wrapResolverError(err))
	} else {
		rawStream = normalizeAwaitable(raw)
	}

	return completeValue(ctx, ec, fieldDef.Type, fieldNodes, path, rawStream), true
}
