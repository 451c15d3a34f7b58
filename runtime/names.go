package runtime

import (
	"reflect"
	"strings"
	"unicode"
)

// lowerCamel converts an exported Go identifier to its script spelling.
// A leading acronym folds as a whole: ID -> id, HTTPServer -> httpServer.
func lowerCamel(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return s
	case n > 1 && n < len(runes) && unicode.IsLower(runes[n]):
		// Last uppercase before lowercase starts the next word
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// fieldName returns the script name of a struct field: the js tag when
// present, otherwise the lower-camel Go name. Hidden fields report "".
func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("js"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return lowerCamel(f.Name)
}

// visibleFields lists the exported fields reachable on t, promoted fields
// included, in declaration order.
func visibleFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous || fieldName(f) == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// lookupField matches name against the script names first, then the Go
// names.
func lookupField(t reflect.Type, name string) (reflect.StructField, bool) {
	fields := visibleFields(t)
	for _, f := range fields {
		if fieldName(f) == name {
			return f, true
		}
	}
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// lookupMethod finds an exported method by Go name, then by its lower-camel
// spelling.
func lookupMethod(v reflect.Value, name string) (reflect.Value, bool) {
	if !v.IsValid() || v.NumMethod() == 0 {
		return reflect.Value{}, false
	}
	if m := v.MethodByName(name); m.IsValid() {
		return m, true
	}
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		if lowerCamel(t.Method(i).Name) == name {
			return v.Method(i), true
		}
	}
	return reflect.Value{}, false
}
