package encoding

import (
	"fmt"
	"reflect"

	"github.com/tryfix/errors"
)

type StringEncoder struct{}

func (s StringEncoder) Encode(v interface{}) ([]byte, error) {
	switch str := v.(type) {
	case string:
		return []byte(str), nil
	case fmt.Stringer:
		return []byte(str.String()), nil
	}

	return nil, errors.Errorf(`invalid type [%+v] expected string`, reflect.TypeOf(v))
}

func (s StringEncoder) Decode(data []byte) (interface{}, error) {
	return string(data), nil
}
