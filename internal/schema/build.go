package schema

// This file provides small fluent constructors for assembling a Schema value
// directly from Go code. Compiling a schema from SDL text is the external
// toolkit's job (gqlparser's validator operates on the SDL AST, not on this
// in-process representation); these constructors exist so the engine and its
// tests can stand a schema up without that toolkit layer.

// NewSchema creates an empty Schema.
func NewSchema(description string) *Schema {
	return &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
}

func (s *Schema) SetQueryType(name string) *Schema {
	s.QueryType = name
	return s
}

func (s *Schema) SetMutationType(name string) *Schema {
	s.MutationType = name
	return s
}

func (s *Schema) SetSubscriptionType(name string) *Schema {
	s.SubscriptionType = name
	return s
}

func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

// WithBuiltins registers the spec-defined scalars and the @skip/@include
// directives.
func (s *Schema) WithBuiltins() *Schema {
	return s.
		AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType).
		AddDirective(includeDirective).
		AddDirective(skipDirective)
}

// NewType creates a named type of the given kind.
func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

// NewField creates a field of the given name and output type. Resolve is
// left nil; set it with WithResolve or directly for resolver-backed fields,
// and leave it nil for fields the default resolver should project off the
// source value.
func NewField(name string, t *TypeRef) *Field {
	return &Field{Name: name, Type: t}
}

func (f *Field) WithResolve(fn FieldResolveFn) *Field {
	f.Resolve = fn
	return f
}

func (f *Field) WithArgs(args ...*InputValue) *Field {
	f.Arguments = append(f.Arguments, args...)
	return f
}
