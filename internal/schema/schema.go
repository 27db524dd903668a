package schema

import "context"

// undefinedType is a private sentinel type so only schema.Undefined itself
// can ever compare equal to it.
type undefinedType struct{}

// Undefined is a resolver's way of saying "no value, omit this key from the
// response", distinct from a nil value, which means "this key is present
// and null". Go has no built-in way to represent JavaScript's undefined; a
// resolver returns this sentinel from the same return slot it would
// otherwise use for a plain value.
var Undefined any = undefinedType{}

// Deferred is a one-shot future: a thunk that produces a value or an error
// when it eventually runs. The Field Resolver and Value Completer normalize
// it into a single-emit stream. There is no promise/future type in the
// surrounding ecosystem this module draws on, so a plain closure stands in
// for it, the idiomatic Go substitute for "a value that resolves later".
type Deferred func() (any, error)

// ResolveInfo carries the metadata a resolver needs about the field it is
// resolving: its static position in the schema, not its dynamic response
// path (callers that need the path thread it through args/context instead,
// the way the teacher's executor keeps path bookkeeping out of the runtime
// contract).
type ResolveInfo struct {
	ParentType string
	FieldName  string
	ReturnType *TypeRef
}

// FieldResolveFn resolves a field's raw value. The result may be a plain
// value, a Deferred, or an rx.Stream (checked by the executor via type
// switch, since schema does not import rx to avoid a dependency cycle with
// the engine that consumes it).
type FieldResolveFn func(ctx context.Context, source any, args map[string]any, info *ResolveInfo) (any, error)

// IsTypeOfFn predicates whether a runtime value satisfies an Object type
// when resolving an abstract (interface/union) value. May return a Deferred
// bool instead of a bool.
type IsTypeOfFn func(ctx context.Context, value any) (any, error)

// ResolveTypeFn resolves the concrete Object type name for an abstract-typed
// runtime value. May return a Deferred string instead of a string.
type ResolveTypeFn func(ctx context.Context, value any) (any, error)

// SerializeFn serializes a runtime leaf (scalar/enum) value to a JSON-safe
// wire value. An error, or a return value that is itself invalid for the
// wire (NaN, etc.), is treated as an invalid-leaf-serialization error.
type SerializeFn func(value any) (any, error)

// Schema represents the complete GraphQL schema
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For INTERFACE and UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool

	// IsTypeOf, set on an Object type, lets the Value Completer validate (or,
	// absent a ResolveType on the abstract type, discover) that a
	// runtime value belongs to this concrete type.
	IsTypeOf IsTypeOfFn

	// ResolveType, set on an Interface or Union type, resolves the concrete
	// Object type name for a runtime value of this abstract type.
	ResolveType ResolveTypeFn

	// Serialize, set on a Scalar or Enum type, converts a runtime value to
	// its wire representation.
	Serialize SerializeFn
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue // formerly ArgumentDefinitionMap
	Resolve           FieldResolveFn
	IsDeprecated      bool
	DeprecationReason string
}

// IsLeaf reports whether t names a Scalar or Enum type.
func (t *Type) IsLeaf() bool {
	return t != nil && (t.Kind == TypeKindScalar || t.Kind == TypeKindEnum)
}

// IsAbstract reports whether t names an Interface or Union type.
func (t *Type) IsAbstract() bool {
	return t != nil && (t.Kind == TypeKindInterface || t.Kind == TypeKindUnion)
}

// IsObject reports whether t names an Object type.
func (t *Type) IsObject() bool { return t != nil && t.Kind == TypeKindObject }

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// Helper functions for TypeRef
func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue // formerly ArgumentDefinitionMap
	IsRepeatable bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
