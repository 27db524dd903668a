package executor

import (
	"fmt"
	"sync"

	language "github.com/hanpama/reactive-graphql/internal/language"
	schema "github.com/hanpama/reactive-graphql/internal/schema"
)

// PathElement is one segment of a response path: a field's response name
// (string) or a list index (int).
type PathElement any

// Path is a response-tree location, root-to-leaf.
type Path []PathElement

func appendPath(p Path, e PathElement) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, e)
}

func pathToString(p Path) string {
	s := ""
	for _, e := range p {
		switch v := e.(type) {
		case string:
			if s != "" {
				s += "."
			}
			s += v
		case int:
			s += fmt.Sprintf("[%d]", v)
		default:
			s += fmt.Sprintf(".%v", v)
		}
	}
	return s
}

// execContext is the Execution Context Builder's product: everything
// field resolution, argument coercion and error reporting need, built once
// per Execute call and threaded through every recursive evaluator call.
type execContext struct {
	schema          *schema.Schema
	document        *language.QueryDocument
	operation       *language.OperationDefinition
	variableValues  map[string]any
	defaultResolver schema.FieldResolveFn

	mu      sync.Mutex
	errors  []GraphQLError
	subSets sync.Map // selection-set merge memo, keyed by mergeKey
}

// addError records a located error. The engine does not deduplicate: the
// same condition recurring on a later snapshot (a resolver erroring again on
// a live stream, a selection re-evaluated after a switch) is recorded again,
// since it genuinely affected that later snapshot too.
func (ec *execContext) addError(msg string, path Path) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.errors = append(ec.errors, GraphQLError{Message: msg, Path: append(Path{}, path...)})
}

// snapshotErrors returns a copy of the errors accumulated so far, safe to
// attach to an emitted ResponseSnapshot without racing future appends.
func (ec *execContext) snapshotErrors() []GraphQLError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if len(ec.errors) == 0 {
		return nil
	}
	out := make([]GraphQLError, len(ec.errors))
	copy(out, ec.errors)
	return out
}

func (ec *execContext) reportUnknownField(parent *schema.Type, name string, path Path) {
	hint := fieldNotFoundHint(parent)
	msg := fmt.Sprintf("field '%s' was not found on type '%s'.", name, parentTypeName(parent))
	if hint != "" {
		msg += " " + hint
	}
	ec.addError(msg, path)
}

func fieldNotFoundHint(parent *schema.Type) string {
	if parent == nil {
		return "The type should not be null."
	}
	switch parent.Kind {
	case schema.TypeKindScalar:
		return "The field has a scalar type, which means it supports no nesting."
	case schema.TypeKindEnum:
		return "The field has an enum type, which means it supports no nesting."
	case schema.TypeKindObject, schema.TypeKindInterface:
		names := make([]string, len(parent.Fields))
		for i, f := range parent.Fields {
			names[i] = f.Name
		}
		joined := ""
		for i, n := range names {
			if i > 0 {
				joined += ", "
			}
			joined += n
		}
		return fmt.Sprintf("The only fields found in this Object are: `%s`.", joined)
	default:
		return ""
	}
}

func parentTypeName(t *schema.Type) string {
	if t == nil {
		return ""
	}
	return t.Name
}

func lookupField(t *schema.Type, name string) *schema.Field {
	if t == nil {
		return nil
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// typeRefFromAST converts a parsed query-side type (a variable definition's
// declared type) into the schema's own TypeRef representation.
func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	var ref *schema.TypeRef
	if t.NamedType != "" {
		ref = schema.NamedType(t.NamedType)
	} else {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	}
	if t.NonNull {
		ref = schema.NonNullType(ref)
	}
	return ref
}

type mergeKey struct {
	typeName string
	head     *language.Field
}

// mergeSelectionSet merges the sub-selection sets of every field node in a
// collected field group (distinct nodes exist when the same response key
// comes from multiple inline fragments). Memoized per (parent type, field
// node) pair so that repeated re-evaluation of the same tree position under
// rx.SwitchMap does not redo the merge on every switch.
func (ec *execContext) mergeSelectionSet(parentType *schema.Type, nodes []*language.Field) language.SelectionSet {
	key := mergeKey{typeName: parentType.Name, head: nodes[0]}
	if cached, ok := ec.subSets.Load(key); ok {
		return cached.(language.SelectionSet)
	}
	var merged language.SelectionSet
	for _, n := range nodes {
		merged = append(merged, n.SelectionSet...)
	}
	ec.subSets.Store(key, merged)
	return merged
}
