package resource

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medirecords/store"
)

const (
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
)

// immutableFields are dropped from every update payload before it is merged.
var immutableFields = []string{store.IDField, "id", CreatedAtField, UpdatedAtField}

type FieldKind int

const (
	TextField FieldKind = iota
	NumberField
	ReferenceField
)

type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
}

// Spec describes one entity kind: where it lives and which fields it carries.
type Spec struct {
	Entity     string
	Collection string
	Fields     []Field
	Timestamps bool
}

var (
	objectIDType = reflect.TypeOf(primitive.ObjectID{})
	timeType     = reflect.TypeOf(time.Time{})
)

// SpecFor derives a Spec from the record type T.
//
// The JSON tag names a field. string fields are text, numeric fields are
// numbers, ObjectID fields are references, and a createdAt/updatedAt pair of
// time.Time fields turns on timestamps. A `resource:"required"` tag marks a
// field that create must receive. SpecFor panics on a type it cannot describe.
func SpecFor[T any](entity, collection string) Spec {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("resource: %s record must be a struct, got %s", entity, t.Kind()))
	}

	spec := Spec{Entity: entity, Collection: collection}
	var created, updated bool

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" || name == store.IDField {
			continue
		}

		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		var kind FieldKind
		switch {
		case ft == timeType:
			switch name {
			case CreatedAtField:
				created = true
			case UpdatedAtField:
				updated = true
			default:
				panic(fmt.Sprintf("resource: %s.%s: only %s and %s may be timestamps", entity, name, CreatedAtField, UpdatedAtField))
			}
			continue
		case ft == objectIDType:
			kind = ReferenceField
		case ft.Kind() == reflect.String:
			kind = TextField
		case isNumeric(ft.Kind()):
			kind = NumberField
		default:
			panic(fmt.Sprintf("resource: %s.%s: unsupported field type %s", entity, name, sf.Type))
		}

		spec.Fields = append(spec.Fields, Field{
			Name:     name,
			Kind:     kind,
			Required: sf.Tag.Get("resource") == "required",
		})
	}

	if created != updated {
		panic(fmt.Sprintf("resource: %s must declare both %s and %s", entity, CreatedAtField, UpdatedAtField))
	}
	spec.Timestamps = created
	return spec
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (s Spec) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields lists the fields create must receive, in declaration order.
func (s Spec) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s Spec) noun() string {
	return strings.ToLower(s.Entity)
}

// stripImmutable copies payload without deny-listed keys or null values.
func stripImmutable(payload map[string]any) store.Document {
	patch := make(store.Document, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		patch[k] = v
	}
	for _, k := range immutableFields {
		delete(patch, k)
	}
	return patch
}
