// Package schema resolves entity metadata: table name, field to column
// mapping, key fields and fill rules. A parsed Schema is immutable and shared
// by every statement built against its entity.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ErrUnsupportedDataType unsupported data type
var ErrUnsupportedDataType = errors.New("unsupported data type")

// TagName is the struct tag consulted when parsing an entity.
const TagName = "akita"

// Tabler overrides the derived table name.
type Tabler interface {
	TableName() string
}

// FillPolicy selects when a fill function supplies a field value.
type FillPolicy int

const (
	FillNone FillPolicy = iota
	FillInsert
	FillUpdate
	FillInsertUpdate
)

// FillFunc produces a value for a filled field when the caller supplied none.
type FillFunc func() interface{}

// Field describes one entity field.
type Field struct {
	Name          string // struct field name
	DBName        string // column name
	PrimaryKey    bool
	AutoIncrement bool
	Exists        bool // false: ignored for both read and write
	FillPolicy    FillPolicy
	FillFunc      FillFunc
	FieldType     reflect.Type
	StructIndex   []int
}

// ValueOf reads the field from an entity value.
func (f *Field) ValueOf(entity reflect.Value) reflect.Value {
	for entity.Kind() == reflect.Ptr {
		entity = entity.Elem()
	}
	return entity.FieldByIndex(f.StructIndex)
}

// IsZero reports whether the field holds its zero value in entity.
func (f *Field) IsZero(entity reflect.Value) bool {
	return f.ValueOf(entity).IsZero()
}

// Schema is the descriptor of one entity.
type Schema struct {
	Name           string
	Table          string
	ModelType      reflect.Type
	Fields         []*Field
	FieldsByDBName map[string]*Field
	FieldsByName   map[string]*Field
	PrimaryField   *Field
}

// LookUpField finds a field by struct name or column name.
func (s *Schema) LookUpField(name string) *Field {
	if field, ok := s.FieldsByDBName[name]; ok {
		return field
	}
	if field, ok := s.FieldsByName[name]; ok {
		return field
	}
	return nil
}

// Fill attaches a fill function to the named field. Intended to be called
// right after registration, before the schema is shared.
func (s *Schema) Fill(name string, policy FillPolicy, fn FillFunc) error {
	field := s.LookUpField(name)
	if field == nil {
		return fmt.Errorf("akita: unknown field %s on %s", name, s.Name)
	}
	field.FillPolicy = policy
	field.FillFunc = fn
	return nil
}

// Registry caches parsed schemas per entity type.
type Registry struct {
	namer Namer
	store sync.Map // reflect.Type -> *Schema
}

// NewRegistry creates a registry using the given naming strategy.
func NewRegistry(namer Namer) *Registry {
	if namer == nil {
		namer = NamingStrategy{}
	}
	return &Registry{namer: namer}
}

// Parse resolves the schema for dest, parsing it on first use.
func (r *Registry) Parse(dest interface{}) (*Schema, error) {
	if dest == nil {
		return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, dest)
	}

	modelType := reflect.ValueOf(dest).Type()
	for modelType.Kind() == reflect.Slice || modelType.Kind() == reflect.Array || modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	return r.ParseType(modelType)
}

// ParseType resolves the schema for a struct type.
func (r *Registry) ParseType(modelType reflect.Type) (*Schema, error) {
	if modelType.Kind() != reflect.Struct {
		if modelType.PkgPath() == "" {
			return nil, fmt.Errorf("%w: %+v", ErrUnsupportedDataType, modelType.Name())
		}
		return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedDataType, modelType.PkgPath(), modelType.Name())
	}

	if v, ok := r.store.Load(modelType); ok {
		return v.(*Schema), nil
	}

	s := &Schema{
		Name:           modelType.Name(),
		ModelType:      modelType,
		FieldsByDBName: map[string]*Field{},
		FieldsByName:   map[string]*Field{},
	}

	modelValue := reflect.New(modelType)
	if tabler, ok := modelValue.Interface().(Tabler); ok {
		s.Table = tabler.TableName()
	} else {
		s.Table = r.namer.TableName(modelType.Name())
	}

	for i := 0; i < modelType.NumField(); i++ {
		structField := modelType.Field(i)
		if !structField.IsExported() {
			continue
		}

		field := parseField(structField, r.namer)
		s.Fields = append(s.Fields, field)
		if field.Exists {
			s.FieldsByDBName[field.DBName] = field
		}
		s.FieldsByName[field.Name] = field
		if field.PrimaryKey && s.PrimaryField == nil {
			s.PrimaryField = field
		}
	}

	// fall back to a field named ID when no primaryKey tag present
	if s.PrimaryField == nil {
		if field, ok := s.FieldsByName["ID"]; ok && field.Exists {
			field.PrimaryKey = true
			field.AutoIncrement = true
			s.PrimaryField = field
		}
	}

	if v, loaded := r.store.LoadOrStore(modelType, s); loaded {
		return v.(*Schema), nil
	}
	return s, nil
}

func parseField(structField reflect.StructField, namer Namer) *Field {
	field := &Field{
		Name:        structField.Name,
		Exists:      true,
		FieldType:   structField.Type,
		StructIndex: structField.Index,
	}

	tag := structField.Tag.Get(TagName)
	for _, setting := range strings.Split(tag, ";") {
		setting = strings.TrimSpace(setting)
		k, v, _ := strings.Cut(setting, ":")
		switch strings.ToLower(k) {
		case "-":
			field.Exists = false
		case "column":
			field.DBName = v
		case "primarykey", "pk":
			field.PrimaryKey = true
		case "autoincrement", "auto":
			field.AutoIncrement = true
		case "fill":
			switch strings.ToLower(v) {
			case "insert":
				field.FillPolicy = FillInsert
			case "update":
				field.FillPolicy = FillUpdate
			case "insert_update", "insertupdate":
				field.FillPolicy = FillInsertUpdate
			}
		}
	}

	if field.DBName == "" {
		field.DBName = namer.ColumnName("", structField.Name)
	}
	return field
}
