package runtime

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/samber/lo"

	"github.com/wippyai/js-bridge/errors"
)

var errorType = reflect.TypeFor[error]()

// getMember reads name from a kept Go value: methods, struct fields, map
// keys and slice elements (plus length). found is false when v has no such
// member.
func getMember(v any, name string) (member any, found bool, err error) {
	if e, ok := v.(error); ok && name == "message" {
		return e.Error(), true, nil
	}

	rv := reflect.ValueOf(v)
	if m, ok := lookupMethod(rv, name); ok {
		return m.Interface(), true, nil
	}

	ind, ok := indirect(rv)
	if !ok {
		return nil, false, nil
	}
	switch ind.Kind() {
	case reflect.Struct:
		f, ok := lookupField(ind.Type(), name)
		if !ok {
			return nil, false, nil
		}
		fv, err := ind.FieldByIndexErr(f.Index)
		if err != nil || !fv.CanInterface() {
			return nil, false, err
		}
		return fv.Interface(), true, nil
	case reflect.Map:
		key, ok := mapKey(ind.Type(), name)
		if !ok {
			return nil, false, nil
		}
		mv := ind.MapIndex(key)
		if !mv.IsValid() {
			return nil, false, nil
		}
		return mv.Interface(), true, nil
	case reflect.Slice, reflect.Array:
		if name == "length" {
			return ind.Len(), true, nil
		}
		i, ok := index(ind, name)
		if !ok {
			return nil, false, nil
		}
		return ind.Index(i).Interface(), true, nil
	}
	return nil, false, nil
}

// setMember assigns value to name on a kept Go value. Struct fields need
// the value to be kept by pointer.
func setMember(v any, name string, value any) error {
	ind, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return errors.InvalidInput(errors.PhaseHost, "cannot set property on nil")
	}

	var target reflect.Value
	switch ind.Kind() {
	case reflect.Struct:
		f, ok := lookupField(ind.Type(), name)
		if !ok {
			return errors.NotFound(errors.PhaseHost, "member", name)
		}
		fv, err := ind.FieldByIndexErr(f.Index)
		if err != nil {
			return err
		}
		target = fv
	case reflect.Map:
		key, ok := mapKey(ind.Type(), name)
		if !ok {
			return errors.Unsupported(errors.PhaseHost, "map key type "+ind.Type().Key().String())
		}
		if ind.IsNil() {
			return errors.InvalidInput(errors.PhaseHost, "cannot set key on nil map")
		}
		cv, err := convertTo(value, ind.Type().Elem())
		if err != nil {
			return err
		}
		ind.SetMapIndex(key, cv)
		return nil
	case reflect.Slice, reflect.Array:
		i, ok := index(ind, name)
		if !ok {
			return errors.OutOfBounds(errors.PhaseHost, []string{name}, -1, ind.Len())
		}
		target = ind.Index(i)
	default:
		return errors.Unsupported(errors.PhaseHost, fmt.Sprintf("cannot set property on %T", v))
	}

	if !target.CanSet() {
		return errors.New(errors.PhaseHost, errors.KindUnsupported).
			Path(name).
			GoType(fmt.Sprintf("%T", v)).
			Detail("member is not settable").
			Build()
	}
	cv, err := convertTo(value, target.Type())
	if err != nil {
		return err
	}
	target.Set(cv)
	return nil
}

// deleteMember removes a map key. Other values have nothing to delete.
func deleteMember(v any, name string) bool {
	ind, ok := indirect(reflect.ValueOf(v))
	if !ok || ind.Kind() != reflect.Map || ind.IsNil() {
		return false
	}
	key, ok := mapKey(ind.Type(), name)
	if !ok {
		return false
	}
	ind.SetMapIndex(key, reflect.Value{})
	return true
}

// memberKeys lists the enumerable members of a kept value: struct fields in
// declaration order, map keys sorted, slice indexes ascending.
func memberKeys(v any) []string {
	ind, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return nil
	}
	switch ind.Kind() {
	case reflect.Struct:
		return lo.Map(visibleFields(ind.Type()), func(f reflect.StructField, _ int) string {
			return fieldName(f)
		})
	case reflect.Map:
		if ind.Type().Key().Kind() != reflect.String {
			return nil
		}
		keys := lo.Map(ind.MapKeys(), func(k reflect.Value, _ int) string {
			return k.String()
		})
		slices.Sort(keys)
		return keys
	case reflect.Slice, reflect.Array:
		return lo.Times(ind.Len(), strconv.Itoa)
	}
	return nil
}

func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func mapKey(t reflect.Type, name string) (reflect.Value, bool) {
	if t.Key().Kind() != reflect.String {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(name).Convert(t.Key()), true
}

func index(v reflect.Value, name string) (int, bool) {
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 || i >= v.Len() {
		return 0, false
	}
	return i, true
}

// callFunc calls fn with script arguments converted to its parameter types.
// Missing arguments are zero values and extra ones are dropped. A non-nil
// trailing error result is returned as the error.
func callFunc(fn reflect.Value, args []any) (any, error) {
	t := fn.Type()
	n := t.NumIn()
	in := make([]reflect.Value, 0, max(n, len(args)))
	for i := 0; i < n; i++ {
		pt := t.In(i)
		if t.IsVariadic() && i == n-1 {
			for _, a := range args[min(i, len(args)):] {
				cv, err := convertTo(a, pt.Elem())
				if err != nil {
					return nil, argError(i, err)
				}
				in = append(in, cv)
			}
			break
		}
		var a any
		if i < len(args) {
			a = args[i]
		}
		cv, err := convertTo(a, pt)
		if err != nil {
			return nil, argError(i, err)
		}
		in = append(in, cv)
	}
	return results(fn.Call(in))
}

func argError(i int, err error) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append([]string{"args", strconv.Itoa(i)}, e.Path...)
		return e
	}
	return err
}

func results(out []reflect.Value) (any, error) {
	if k := len(out); k > 0 && out[k-1].Type() == errorType {
		if !out[k-1].IsNil() {
			return nil, out[k-1].Interface().(error)
		}
		out = out[:k-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	return lo.Map(out, func(v reflect.Value, _ int) any {
		return v.Interface()
	}), nil
}

// convertTo adapts a converted script value to the Go type t.
func convertTo(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	switch {
	case isNumber(v.Kind()) && isNumber(t.Kind()),
		v.Kind() == reflect.String && t.Kind() == reflect.String,
		v.Kind() == reflect.Bool && t.Kind() == reflect.Bool:
		return v.Convert(t), nil
	case v.Kind() == reflect.Slice && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array):
		out := reflect.New(t).Elem()
		if t.Kind() == reflect.Slice {
			out = reflect.MakeSlice(t, v.Len(), v.Len())
		} else if v.Len() > t.Len() {
			break
		}
		for i := 0; i < v.Len(); i++ {
			ev, err := convertTo(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case v.Kind() == reflect.Map && t.Kind() == reflect.Map && t.Key().Kind() == reflect.String:
		out := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			ev, err := convertTo(iter.Value().Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(iter.Key().Convert(t.Key()), ev)
		}
		return out, nil
	case t.Kind() == reflect.Pointer && v.Type().AssignableTo(t.Elem()):
		p := reflect.New(t.Elem())
		p.Elem().Set(v)
		return p, nil
	case v.Type().ConvertibleTo(t) && v.Kind() == t.Kind():
		return v.Convert(t), nil
	}

	return reflect.Value{}, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
		GoType(t.String()).
		JSType(fmt.Sprintf("%T", a)).
		Detail("cannot convert argument").
		Build()
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
