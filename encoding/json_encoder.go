package encoding

import (
	"encoding/json"
	"reflect"

	"github.com/tryfix/errors"
)

// JsonEncoder encodes values as JSON. Decode allocates the target through
// New so callers get back a typed value.
type JsonEncoder struct {
	New func() interface{}
}

func NewJsonEncoder(newFn func() interface{}) *JsonEncoder {
	return &JsonEncoder{New: newFn}
}

func (e *JsonEncoder) Encode(v interface{}) ([]byte, error) {
	byt, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WithPrevious(err, `json encode error`)
	}

	return byt, nil
}

func (e *JsonEncoder) Decode(data []byte) (interface{}, error) {
	if e.New == nil {
		return nil, errors.New(`json decoder has no target type`)
	}

	v := e.New()
	if reflect.ValueOf(v).Kind() != reflect.Ptr {
		return nil, errors.Errorf(`invalid decode target [%v] expected pointer`, reflect.TypeOf(v))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return nil, errors.WithPrevious(err, `json decode error`)
	}

	return v, nil
}
