package executor

import (
	"context"
	"fmt"

	"github.com/hanpama/reactive-graphql/internal/rx"
	language "github.com/hanpama/reactive-graphql/internal/language"
	schema "github.com/hanpama/reactive-graphql/internal/schema"
)

// Params holds everything the Operation Dispatcher needs to run a parsed
// query document: the schema it runs against, the operation to execute (by
// name, when the document defines more than one), the root value, pre-coerced
// or raw variable bindings, and the resolver to fall back to when a field
// defines none of its own. There is no separate context value: resolvers
// receive the ctx passed to Execute.
type Params struct {
	Schema          *schema.Schema
	Document        *language.QueryDocument
	OperationName   string
	RootValue       any
	VariableValues  map[string]any
	DefaultResolver schema.FieldResolveFn
}

// Execute is the Operation Dispatcher: it selects the operation, resolves
// its root type, coerces variables, and evaluates the root selection set in
// read or write mode. It returns a stream of ResponseSnapshot; any
// dispatch-time failure (unknown operation, missing root type, variable
// coercion failure) surfaces as a single snapshot with Data nil and the
// failure recorded as an error, matching how a deeper Non-Null violation
// reaching the root behaves.
func Execute(ctx context.Context, p Params) rx.Stream {
	ec := &execContext{
		schema:          p.Schema,
		document:        p.Document,
		defaultResolver: p.DefaultResolver,
	}
	if ec.defaultResolver == nil {
		ec.defaultResolver = DefaultFieldResolver
	}

	op, err := selectOperation(p.Document, p.OperationName)
	if err != nil {
		ec.addError(err.Error(), nil)
		return rx.Just(ResponseSnapshot{Data: nil, Errors: ec.snapshotErrors()})
	}
	ec.operation = op

	variableValues, err := coerceVariableValues(p.Schema, op, p.VariableValues)
	if err != nil {
		ec.addError(err.Error(), nil)
		return rx.Just(ResponseSnapshot{Data: nil, Errors: ec.snapshotErrors()})
	}
	ec.variableValues = variableValues

	rootType, mode, err := selectRootType(p.Schema, op)
	if err != nil {
		ec.addError(err.Error(), nil)
		return rx.Just(ResponseSnapshot{Data: nil, Errors: ec.snapshotErrors()})
	}

	fields := collectFields(ec, rootType, op.SelectionSet)
	obj := evaluateSelectionSet(ctx, ec, rootType, p.RootValue, Path{}, fields, mode)
	return finalize(ec, obj)
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name != "" {
		op := doc.Operations.ForName(name)
		if op == nil {
			return nil, fmt.Errorf("operation %q not found in document", name)
		}
		return op, nil
	}
	if len(doc.Operations) == 1 {
		return doc.Operations[0], nil
	}
	if len(doc.Operations) == 0 {
		return nil, fmt.Errorf("document defines no operations")
	}
	return nil, fmt.Errorf("document defines multiple operations; an operation name is required")
}

func selectRootType(s *schema.Schema, op *language.OperationDefinition) (*schema.Type, Mode, error) {
	switch op.Operation {
	case language.Mutation:
		t := s.GetMutationType()
		if t == nil {
			return nil, ReadMode, fmt.Errorf("schema does not define a mutation type")
		}
		return t, WriteMode, nil
	case language.Subscription:
		t := s.GetSubscriptionType()
		if t == nil {
			return nil, ReadMode, fmt.Errorf("schema does not define a subscription type")
		}
		return t, ReadMode, nil
	default:
		t := s.GetQueryType()
		if t == nil {
			return nil, ReadMode, fmt.Errorf("schema does not define a query type")
		}
		return t, ReadMode, nil
	}
}

// finalize wraps the root object stream into the response-snapshot stream:
// every object emission becomes a snapshot carrying the errors accumulated
// so far, and an unrecovered error reaching the root (a Non-Null violation
// that propagated all the way up) becomes one final {data: nil} snapshot,
// same as any other top-level dispatch failure.
func finalize(ec *execContext, obj rx.Stream) rx.Stream {
	return rx.Func(func(ctx context.Context) <-chan rx.Event {
		out := make(chan rx.Event)
		go func() {
			defer close(out)
			in := obj.Subscribe(ctx)
			for ev := range in {
				if ev.Err != nil {
					// Every Err event reaching this point was already
					// recorded by whichever Non-Null check or error guard
					// produced it; only the data needs nulling here.
					select {
					case out <- rx.Event{Value: ResponseSnapshot{Data: nil, Errors: ec.snapshotErrors()}}:
					case <-ctx.Done():
					}
					return
				}
				snap := ResponseSnapshot{Data: ev.Value, Errors: ec.snapshotErrors()}
				select {
				case out <- rx.Event{Value: snap}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	})
}
