package config

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// MergeConfig 把 src 中的非零值覆盖到 dst 上并返回 dst
//   - 两者都为 nil 时返回错误
//   - 任一为 nil 时返回另一个
//
// 常见用法：config.MergeConfig(DefaultConfig(), userCfg)
func MergeConfig[T any](dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, errors.Wrap(ErrNilConfig, "both dst and src are nil")
	case dst == nil:
		return src, nil
	case src == nil:
		return dst, nil
	}

	if err := mergeValue(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, errors.Mark(err, ErrMergeFailed)
	}
	return dst, nil
}

func mergeValue(dst, src reflect.Value) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			if err := mergeValue(dst.Field(i), src.Field(i)); err != nil {
				return errors.Wrapf(err, "field %s", field.Name)
			}
		}
		return nil

	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMapWithSize(dst.Type(), src.Len()))
		}
		iter := src.MapRange()
		for iter.Next() {
			dst.SetMapIndex(iter.Key(), iter.Value())
		}
		return nil

	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(src)
			return nil
		}
		return mergeValue(dst.Elem(), src.Elem())

	default:
		// 基本类型与切片整体覆盖
		if !dst.CanSet() {
			return errors.Newf("cannot set value of kind %s", dst.Kind())
		}
		dst.Set(src)
		return nil
	}
}
