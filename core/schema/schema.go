// Package schema holds the static field descriptors of every persisted entity.
//
// An entity is declared once from its Go struct: the `db` tag gives the storage
// (snake_case) name of a field, the `json` tag its presentation (camelCase) name,
// and the `schema` tag its constraints:
//
//	type Course struct {
//		ID           int    `db:"id" json:"id"`
//		InstructorID int    `db:"instructor_id" json:"instructorId" schema:",required"`
//	}
//
// The `schema` tag is `[name][,required][,default][,nullable]`; a non-empty name
// overrides the json name (useful for write-only fields tagged `json:"-"`).
// Validators, transforms and enumerated values are attached with Options.
package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// KeyColumn is the storage name of every entity's primary key.
const KeyColumn = "id"

var ErrSchemaNotFound = errors.New("schema not found")

type FieldType string

const (
	String FieldType = "string"
	Int    FieldType = "int"
	Float  FieldType = "float"
	Bool   FieldType = "bool"
	Time   FieldType = "timestamp"
)

type Field struct {
	Name       string // presentation name
	Column     string // storage name
	Type       FieldType
	Required   bool
	HasDefault bool
	Nullable   bool
	Values     []string // allowed values, if enumerated
	Validators []ValidatorFunc
	Transforms []TransformFunc
}

// IsRequired reports whether the field must be provided on create.
func (f Field) IsRequired() bool {
	return f.Required && !f.HasDefault
}

func (f Field) allows(v interface{}) bool {
	if len(f.Values) == 0 {
		return true
	}
	s := fmt.Sprint(v)
	for _, val := range f.Values {
		if s == val {
			return true
		}
	}
	return false
}

type Schema struct {
	Table    string
	Key      Field
	model    reflect.Type
	fields   []*Field
	byName   map[string]*Field
	byColumn map[string]*Field
}

// Fields returns the writable fields, in declaration order.
func (s *Schema) Fields() []Field {
	flds := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		flds = append(flds, *f)
	}
	return flds
}

// Field finds a writable field by storage name.
func (s *Schema) Field(column string) (Field, bool) {
	if f, ok := s.byColumn[column]; ok {
		return *f, true
	}
	return Field{}, false
}

// FieldByName finds a writable field by presentation name.
func (s *Schema) FieldByName(name string) (Field, bool) {
	if f, ok := s.byName[name]; ok {
		return *f, true
	}
	return Field{}, false
}

// ToStorage maps a presentation name (key included) to its storage name.
func (s *Schema) ToStorage(name string) (string, bool) {
	if name == s.Key.Name {
		return s.Key.Column, true
	}
	if f, ok := s.byName[name]; ok {
		return f.Column, true
	}
	return "", false
}

// ToPresentation maps a storage name (key included) to its presentation name.
func (s *Schema) ToPresentation(column string) (string, bool) {
	if column == s.Key.Column {
		return s.Key.Name, true
	}
	if f, ok := s.byColumn[column]; ok {
		return f.Name, true
	}
	return "", false
}

// Columns lists every storage column, key first.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.fields)+1)
	cols = append(cols, s.Key.Column)
	for _, f := range s.fields {
		cols = append(cols, f.Column)
	}
	return cols
}

// Model is the Go type rows of this schema are scanned into.
func (s *Schema) Model() reflect.Type { return s.model }

// Definition is a lazily compiled, memoized Schema.
type Definition struct {
	table string
	model reflect.Type
	opts  []Option

	once   sync.Once
	schema *Schema
	err    error
}

func (d *Definition) Table() string { return d.table }

func (d *Definition) Schema() (*Schema, error) {
	d.once.Do(func() {
		d.schema, d.err = compile(d.table, d.model, d.opts)
	})
	return d.schema, d.err
}

// MustSchema is like Schema but panics on a malformed definition.
func (d *Definition) MustSchema() *Schema {
	s, err := d.Schema()
	if err != nil {
		panic(err)
	}
	return s
}

var registry = struct {
	sync.RWMutex
	defs map[string]*Definition
}{defs: make(map[string]*Definition)}

// Define registers the entity stored in `table`, described by the struct `model`.
// It is meant to be called while initializing package variables; defining a table twice panics.
func Define(table string, model interface{}, opts ...Option) *Definition {
	d := newDefinition(table, model, opts)

	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.defs[table]; ok {
		panic(fmt.Sprintf("schema: %q defined twice", table))
	}
	registry.defs[table] = d
	return d
}

func newDefinition(table string, model interface{}, opts []Option) *Definition {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &Definition{table: table, model: t, opts: opts}
}

// Describe returns the compiled schema of an entity.
func Describe(entity string) (*Schema, error) {
	registry.RLock()
	d, ok := registry.defs[entity]
	registry.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrSchemaNotFound, entity)
	}
	return d.Schema()
}

// Entities lists the defined entities, sorted.
func Entities() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.defs))
	for name := range registry.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	nullStringType = reflect.TypeOf(null.String{})
	nullIntType    = reflect.TypeOf(null.Int{})
	nullTimeType   = reflect.TypeOf(null.Time{})
)

func fieldType(t reflect.Type) (ft FieldType, nullable bool, err error) {
	switch t {
	case timeType:
		return Time, false, nil
	case nullStringType:
		return String, true, nil
	case nullIntType:
		return Int, true, nil
	case nullTimeType:
		return Time, true, nil
	}
	switch t.Kind() {
	case reflect.Ptr:
		ft, _, err = fieldType(t.Elem())
		return ft, true, err
	case reflect.String:
		return String, false, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int, false, nil
	case reflect.Float32, reflect.Float64:
		return Float, false, nil
	case reflect.Bool:
		return Bool, false, nil
	}
	return "", false, errors.Errorf("unsupported type %s", t)
}

func compile(table string, model reflect.Type, opts []Option) (*Schema, error) {
	if model.Kind() != reflect.Struct {
		return nil, errors.Errorf("schema %s: model must be a struct, got %s", table, model)
	}
	s := &Schema{
		Table:    table,
		model:    model,
		byName:   make(map[string]*Field),
		byColumn: make(map[string]*Field),
	}

	var hasKey bool
	for i := 0; i < model.NumField(); i++ {
		sf := model.Field(i)
		column := sf.Tag.Get("db")
		if sf.PkgPath != "" || column == "" || column == "-" {
			continue
		}

		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		var required, hasDefault, nullable bool
		if tag, ok := sf.Tag.Lookup("schema"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, p := range parts[1:] {
				switch strings.TrimSpace(p) {
				case "required":
					required = true
				case "default":
					hasDefault = true
				case "nullable":
					nullable = true
				case "":
				default:
					return nil, errors.Errorf("schema %s.%s: unknown option %q", table, column, p)
				}
			}
		}
		if name == "" || name == "-" {
			return nil, errors.Errorf("schema %s.%s: missing presentation name", table, column)
		}

		ft, isNullable, err := fieldType(sf.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "schema %s.%s", table, column)
		}

		f := &Field{
			Name:       name,
			Column:     column,
			Type:       ft,
			Required:   required,
			HasDefault: hasDefault,
			Nullable:   nullable || isNullable,
		}
		if column == KeyColumn {
			s.Key = *f
			hasKey = true
			continue
		}
		if _, dup := s.byName[f.Name]; dup || f.Name == s.Key.Name && hasKey {
			return nil, errors.Errorf("schema %s: duplicate field name %q", table, f.Name)
		}
		if _, dup := s.byColumn[f.Column]; dup {
			return nil, errors.Errorf("schema %s: duplicate column %q", table, f.Column)
		}
		s.fields = append(s.fields, f)
		s.byName[f.Name] = f
		s.byColumn[f.Column] = f
	}
	if !hasKey {
		return nil, errors.Errorf("schema %s: no %q column", table, KeyColumn)
	}
	if _, clash := s.byName[s.Key.Name]; clash {
		return nil, errors.Errorf("schema %s: duplicate field name %q", table, s.Key.Name)
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.Wrapf(err, "schema %s", table)
		}
	}
	return s, nil
}

type Option func(*Schema) error

func withField(name string, fn func(*Field)) Option {
	return func(s *Schema) error {
		f, ok := s.byName[name]
		if !ok {
			return errors.Errorf("unknown field %q", name)
		}
		fn(f)
		return nil
	}
}

// Validators attaches value validators to a field; they all run whenever the field is written.
func Validators(name string, fns ...ValidatorFunc) Option {
	return withField(name, func(f *Field) { f.Validators = append(f.Validators, fns...) })
}

// Transforms attaches an ordered sequence of transforms applied to the field before persistence.
func Transforms(name string, fns ...TransformFunc) Option {
	return withField(name, func(f *Field) { f.Transforms = append(f.Transforms, fns...) })
}

// Values restricts a field to an enumerated set of values.
func Values(name string, vals ...string) Option {
	return withField(name, func(f *Field) { f.Values = append(f.Values, vals...) })
}
