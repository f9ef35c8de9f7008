package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/kode4food/paisley/pkg/api"
)

// luaScript holds a compiled Lua step function. The script is
// compiled to bytecode once; execution borrows a sandboxed state from
// the pool, so concurrent steps never share an interpreter
type luaScript struct {
	bytecode  []byte
	statePool chan *lua.State
}

const (
	luaStatePoolSize    = 10
	luaParamsPrefix     = "local params = ...\n"
	luaGlobalTableIndex = -2
	luaTableValueIndex  = -3
	luaGlobalTableName  = "_G"
)

var (
	ErrLuaCompile   = errors.New("lua compile error")
	ErrLuaExecution = errors.New("lua execution error")
)

// Globals with filesystem or loader access are stripped from every
// state before scripts run
var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// LuaFunc compiles a Lua script into a step function. The script
// receives its resolved arguments as a table named params and its
// return value becomes the step output; returning a table yields an
// object or array value
func LuaFunc(src string) (Func, error) {
	L := lua.NewState()
	sandbox(L)
	if err := lua.LoadString(L, luaParamsPrefix+src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaCompile, err)
	}
	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaCompile, err)
	}

	script := &luaScript{
		bytecode:  buf.Bytes(),
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
	return script.invoke, nil
}

func (s *luaScript) invoke(_ context.Context, args api.Args) (any, error) {
	L := s.getState()
	defer s.returnState(L)

	err := L.Load(bytes.NewReader(s.bytecode), "chunk", "b")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}

	pushParams(L, args)
	if err := L.ProtectedCall(1, 1, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}

	res := luaToGo(L, -1)
	L.Pop(1)
	return res, nil
}

func (s *luaScript) getState() *lua.State {
	select {
	case L := <-s.statePool:
		return L
	default:
		L := lua.NewState()
		sandbox(L)
		return L
	}
}

func (s *luaScript) returnState(L *lua.State) {
	L.SetTop(0)
	select {
	case s.statePool <- L:
	default:
	}
}

func sandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func pushParams(L *lua.State, args api.Args) {
	L.CreateTable(0, len(args))
	for name, val := range args {
		L.PushString(string(name))
		goToLua(L, val)
		L.SetTable(luaTableValueIndex)
	}
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		L.PushNil()
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		L.CreateTable(len(v), 0)
		for i, item := range v {
			L.PushInteger(i + 1)
			goToLua(L, item)
			L.SetTable(luaTableValueIndex)
		}
	case map[string]any:
		L.CreateTable(0, len(v))
		for k, item := range v {
			L.PushString(k)
			goToLua(L, item)
			L.SetTable(luaTableValueIndex)
		}
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func luaToGo(L *lua.State, index int) any {
	switch {
	case L.IsNil(index):
		return nil
	case L.IsBoolean(index):
		return L.ToBoolean(index)
	case L.IsNumber(index):
		return luaNumberToGo(L, index)
	case L.IsString(index):
		s, _ := L.ToString(index)
		return s
	case L.IsTable(index):
		return luaTableToGo(L, index)
	default:
		return nil
	}
}

// luaNumberToGo keeps whole numbers integral so published outputs
// compare cleanly in conditions and schemas
func luaNumberToGo(L *lua.State, index int) any {
	num, _ := L.ToNumber(index)
	if num == float64(int(num)) {
		return int(num)
	}
	return num
}

func luaTableToGo(L *lua.State, index int) any {
	length, allNumeric := luaTableShape(L, index)
	if allNumeric && length > 0 {
		return luaArrayToGo(L, index, length)
	}

	res := map[string]any{}
	L.PushNil()
	for L.Next(index - 1) {
		var key string
		if L.IsString(-2) {
			key, _ = L.ToString(-2)
		} else {
			key = fmt.Sprintf("%v", luaToGo(L, -2))
		}
		res[key] = luaToGo(L, -1)
		L.Pop(1)
	}
	return res
}

func luaTableShape(L *lua.State, index int) (int, bool) {
	length := 0
	L.PushNil()
	for L.Next(index - 1) {
		if !L.IsNumber(-2) {
			L.Pop(2)
			return 0, false
		}
		length++
		L.Pop(1)
	}
	return length, true
}

func luaArrayToGo(L *lua.State, index, length int) []any {
	absIndex := index
	if index < 0 {
		absIndex = L.Top() + index + 1
	}
	arr := make([]any, length)
	for i := 1; i <= length; i++ {
		L.RawGetInt(absIndex, i)
		arr[i-1] = luaToGo(L, -1)
		L.Pop(1)
	}
	return arr
}
