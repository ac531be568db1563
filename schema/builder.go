package schema

import (
	"fmt"
	"reflect"
)

// Builder assembles a Schema declaratively, for entities whose mapping cannot
// be expressed with struct tags (generated types, shared models, legacy
// column names).
type Builder struct {
	table string
	model reflect.Type
	specs []colSpec
	err   error
}

type colSpec struct {
	name   string // struct field name
	dbName string
	pk     bool
	auto   bool
	policy FillPolicy
	fn     FillFunc
}

// New starts a builder for the given table.
func New(table string) *Builder {
	return &Builder{table: table}
}

// Model binds the builder to the entity struct the columns refer to.
func (b *Builder) Model(entity interface{}) *Builder {
	t := reflect.TypeOf(entity)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		b.fail(fmt.Errorf("%w: %+v", ErrUnsupportedDataType, entity))
		return b
	}
	b.model = t
	return b
}

// Column maps a struct field to a column.
func (b *Builder) Column(field, dbName string) *Builder {
	b.specs = append(b.specs, colSpec{name: field, dbName: dbName})
	return b
}

// Key maps a struct field to a primary key column.
func (b *Builder) Key(field, dbName string) *Builder {
	b.specs = append(b.specs, colSpec{name: field, dbName: dbName, pk: true})
	return b
}

// AutoKey maps a struct field to an auto generated primary key column.
func (b *Builder) AutoKey(field, dbName string) *Builder {
	b.specs = append(b.specs, colSpec{name: field, dbName: dbName, pk: true, auto: true})
	return b
}

// Fill attaches a fill function to the most recently added column.
func (b *Builder) Fill(policy FillPolicy, fn FillFunc) *Builder {
	if len(b.specs) == 0 {
		b.fail(fmt.Errorf("akita: Fill before any column on %s", b.table))
		return b
	}
	spec := &b.specs[len(b.specs)-1]
	spec.policy = policy
	spec.fn = fn
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build resolves every column against the model and returns the schema.
func (b *Builder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.model == nil {
		return nil, fmt.Errorf("akita: builder for %s has no model", b.table)
	}
	if b.table == "" {
		return nil, fmt.Errorf("akita: builder for %s has no table name", b.model.Name())
	}

	s := &Schema{
		Name:           b.model.Name(),
		Table:          b.table,
		ModelType:      b.model,
		FieldsByDBName: map[string]*Field{},
		FieldsByName:   map[string]*Field{},
	}
	for _, spec := range b.specs {
		structField, ok := b.model.FieldByName(spec.name)
		if !ok {
			return nil, fmt.Errorf("akita: unknown field %s on %s", spec.name, b.model.Name())
		}
		field := &Field{
			Name:          spec.name,
			DBName:        spec.dbName,
			PrimaryKey:    spec.pk,
			AutoIncrement: spec.auto,
			Exists:        true,
			FillPolicy:    spec.policy,
			FillFunc:      spec.fn,
			FieldType:     structField.Type,
			StructIndex:   structField.Index,
		}
		s.Fields = append(s.Fields, field)
		s.FieldsByDBName[field.DBName] = field
		s.FieldsByName[field.Name] = field
		if field.PrimaryKey && s.PrimaryField == nil {
			s.PrimaryField = field
		}
	}
	return s, nil
}

// Register stores a hand-built schema so subsequent lookups of its entity
// type resolve to it instead of the tag parser. Registering the same type
// twice keeps the first schema.
func (r *Registry) Register(s *Schema) (*Schema, error) {
	if s == nil || s.ModelType == nil {
		return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, s)
	}
	if v, loaded := r.store.LoadOrStore(s.ModelType, s); loaded {
		return v.(*Schema), nil
	}
	return s, nil
}
