// Package extract turns arbitrary records into searchable declarations.
package extract

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/haystack/core"
)

// Func extracts declarations from a record. Each returned slice becomes one
// document, so a single record may produce several documents.
type Func func(item any) [][]*core.Declaration

// maxDepth bounds recursion into self-referencing records.
const maxDepth = 32

var timeType = reflect.TypeOf(time.Time{})

// ByValue extracts one document per record holding a declaration for every
// scalar reachable from the record. Maps are walked in sorted key order, slices
// by index and structs by exported field, using the json tag name when present.
func ByValue(item any) [][]*core.Declaration {
	var decls []*core.Declaration
	walk(reflect.ValueOf(item), nil, 0, &decls)
	return [][]*core.Declaration{decls}
}

func walk(v reflect.Value, path []string, depth int, out *[]*core.Declaration) {
	if !v.IsValid() || depth > maxDepth {
		return
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return
		}
		walk(v.Elem(), path, depth+1, out)

	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, key := range keys {
			walk(v.MapIndex(key), appendPath(path, fmt.Sprint(key.Interface())), depth+1, out)
		}

	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			leaf(v, path, out)
			return
		}
		for i := 0; i < v.Len(); i++ {
			walk(v.Index(i), appendPath(path, strconv.Itoa(i)), depth+1, out)
		}

	case reflect.Struct:
		if v.Type() == timeType {
			leaf(v, path, out)
			return
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, skip := fieldName(field)
			if skip {
				continue
			}
			walk(v.Field(i), appendPath(path, name), depth+1, out)
		}

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// Not searchable

	default:
		leaf(v, path, out)
	}
}

func leaf(v reflect.Value, path []string, out *[]*core.Declaration) {
	if !v.CanInterface() {
		return
	}
	value := v.Interface()
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	*out = append(*out, core.NewDeclaration(path, value))
}

func fieldName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return field.Name, false
}

func appendPath(path []string, segment string) []string {
	next := make([]string, len(path)+1)
	copy(next, path)
	next[len(path)] = segment
	return next
}
