package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/akhenakh/iconify-lsp/jsonrpc2"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	connType    = reflect.TypeOf((*jsonrpc2.Conn)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// typedHandler wraps a user-provided function with strong parameter typing.
//
// Accepted shapes:
//
//	func(ctx context.Context [, conn *jsonrpc2.Conn] [, params P]) [(R,)] [error]
//
// where P is a struct or a pointer to one.
type typedHandler struct {
	fn          reflect.Value
	paramType   reflect.Type // element type when the handler takes *P
	paramIsPtr  bool
	takesConn   bool
	takesParams bool
	hasResult   bool
	hasError    bool
}

// invoke decodes params and calls the handler.
func (th *typedHandler) invoke(ctx context.Context, conn *jsonrpc2.Conn, params json.RawMessage) (any, error) {
	args := []reflect.Value{reflect.ValueOf(ctx)}
	if th.takesConn {
		args = append(args, reflect.ValueOf(conn))
	}

	if th.takesParams {
		ptr := reflect.New(th.paramType)
		if len(params) > 0 && string(params) != "null" {
			if err := json.Unmarshal(params, ptr.Interface()); err != nil {
				return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "failed to decode params: %v", err)
			}
		} else if !th.paramIsPtr && th.paramType.Kind() == reflect.Struct && th.paramType.NumField() > 0 {
			return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "missing non-nullable params")
		}
		if th.paramIsPtr {
			args = append(args, ptr)
		} else {
			args = append(args, ptr.Elem())
		}
	}

	out := th.fn.Call(args)

	if th.hasError {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			err := errVal.Interface().(error)
			var rpcErr *jsonrpc2.ErrorObject
			if errors.As(err, &rpcErr) {
				return nil, rpcErr
			}
			return nil, jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
		}
	}

	if !th.hasResult {
		return nil, nil
	}
	res := out[0]
	switch res.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if res.IsNil() {
			return nil, nil
		}
	}
	return res.Interface(), nil
}

// newTypedHandler validates a handler function signature.
func newTypedHandler(h any) (*typedHandler, error) {
	if h == nil {
		return nil, fmt.Errorf("handler is nil")
	}
	fn := reflect.ValueOf(h)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function, got %s", ft)
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("handler must not be variadic")
	}
	if ft.NumIn() < 1 || ft.In(0) != contextType {
		return nil, fmt.Errorf("handler must accept context.Context as first argument")
	}

	th := &typedHandler{fn: fn}
	idx := 1
	if ft.NumIn() > idx && ft.In(idx) == connType {
		th.takesConn = true
		idx++
	}
	if ft.NumIn() > idx {
		pt := ft.In(idx)
		if pt.Kind() == reflect.Pointer {
			th.paramIsPtr = true
			pt = pt.Elem()
		}
		th.paramType = pt
		th.takesParams = true
		idx++
	}
	if ft.NumIn() > idx {
		return nil, fmt.Errorf("handler has too many input arguments (max context, [conn], [params])")
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			th.hasError = true
		} else {
			th.hasResult = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("handler's last return value must be error")
		}
		th.hasResult = true
		th.hasError = true
	default:
		return nil, fmt.Errorf("handler has too many return values (max result, error)")
	}
	return th, nil
}
