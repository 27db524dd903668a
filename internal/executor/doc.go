// Package executor implements a reactive, type-directed GraphQL execution
// engine. Given a schema, a parsed query document, a root value, a context
// value and variable bindings, it returns a lazy, possibly-infinite stream of
// response snapshots: every time a leaf value anywhere in the selection tree
// changes, a fresh snapshot is emitted carrying the latest value at every
// position, with errors collected alongside.
//
// # Resolver shapes
//
// A field's Resolve function may return:
//   - a plain value, completed once and done;
//   - a schema.Deferred (a one-shot future), normalized into a single-emit
//     stream;
//   - an rx.Stream, passed straight through and re-completed on every
//     emission.
//
// normalizeAwaitable performs this three-way normalization on the Field
// Resolver's own return value, on ResolveType results, and on IsTypeOf
// results when validating an Object value. The IsTypeOf calls made by the
// default abstract-type resolution accept only a plain or Deferred bool.
//
// # Execution model
//
// Execution walks the query tree top-down and composes streams bottom-up:
//
//   - The Operation Dispatcher (Execute) picks the root type for the
//     operation, collects the root selection set, and runs it in read mode
//     (query) or write mode (mutation).
//   - The Selection-Set Evaluator maps a fields mapping to a stream of
//     response objects. In read mode every field starts concurrently and the
//     object re-emits via combine-latest whenever any field changes. In
//     write mode fields are primed one at a time: field k's resolver is not
//     invoked until field k-1 has produced its first value, after which all
//     primed field streams are combined the same way as read mode.
//   - The Field Resolver selects a resolver (the field's own, or the
//     execution context's default, which projects the same-named attribute
//     off the parent value), coerces arguments, invokes it, and normalizes
//     its return value to a stream.
//   - The Value Completer recurses over the field's declared type
//     (Non-Null, List, Leaf, Object, Abstract) via rx.SwitchMap: every new
//     raw emission from the field's stream replaces the previous completion
//     subtree, canceling whatever subscriptions it held.
//   - The Error Handler applies nullability: a Non-Null field whose stream
//     errors or completes to null propagates that failure to the nearest
//     nullable ancestor (or, at the root, to a final {data: null} snapshot);
//     a nullable field absorbs it, recording a located error and substituting
//     null.
//
// # Stream Combinator Layer
//
// Two operators from internal/rx carry the engine's correctness guarantees:
// CombineLatest (emit once every keyed child has emitted, re-emit on any
// subsequent change, propagate a child's error immediately) and SwitchMap
// (cancel the previous inner subscription before starting the next). See
// internal/rx for their exact contracts.
//
// # Out of scope
//
// Query parsing is provided by gqlparser's ast/parser packages (used via
// internal/language) and schema construction by internal/schema; this
// package validates neither schemas nor queries. It does not implement
// introspection fields or directives that alter execution beyond the
// built-in @skip/@include. Fragment spreads and inline fragments are
// flattened into the selection set when their type condition is absent or
// names the object type itself; any other type condition (an interface or
// union) is skipped without an error.
package executor
