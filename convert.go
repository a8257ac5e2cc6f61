package container

import (
	"fmt"
	"reflect"
	"strconv"
)

// convertValue 将配置值转换为目标类型。
// 直接可赋值的值原样使用；数值类族走 reflect 转换；字符串到
// 数值/布尔的解析是给配置文件里的字面值准备的。
func convertValue(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, fmt.Errorf("container: cannot assign nil to %v", target)
	}

	v := reflect.ValueOf(value)
	t := v.Type()

	if t.AssignableTo(target) {
		return v, nil
	}
	if t.ConvertibleTo(target) && convertibleKinds(t.Kind(), target.Kind()) {
		return v.Convert(target), nil
	}

	if s, ok := value.(string); ok {
		switch target.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("container: cannot parse '%s' as %v: %w", s, target, err)
			}
			return reflect.ValueOf(n).Convert(target), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("container: cannot parse '%s' as %v: %w", s, target, err)
			}
			return reflect.ValueOf(n).Convert(target), nil
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("container: cannot parse '%s' as %v: %w", s, target, err)
			}
			return reflect.ValueOf(f).Convert(target), nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("container: cannot parse '%s' as bool: %w", s, err)
			}
			return reflect.ValueOf(b), nil
		}
	}

	return reflect.Value{}, fmt.Errorf("container: cannot convert %v to %v", t, target)
}

// convertibleKinds 限制 reflect 转换到语义安全的类族
// （数值之间、具名字符串类型之间），避免 int -> string 这类惊喜。
func convertibleKinds(from, to reflect.Kind) bool {
	if isNumericKind(from) && isNumericKind(to) {
		return true
	}
	if from == reflect.String && to == reflect.String {
		return true
	}
	return false
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
