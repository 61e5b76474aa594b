package condition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/kode4food/waypoint/pkg/api"
)

type (
	// LuaEnv evaluates Lua expressions in a sandboxed state. State keys
	// that are valid identifiers become locals, and the whole state is
	// available as the state table
	LuaEnv struct {
		statePool chan *lua.State
		chunks    *Cache
	}

	// CompiledLua is a syntax-checked Lua expression. Bytecode is produced
	// per distinct set of state keys when the expression is evaluated
	CompiledLua struct {
		source string
	}

	luaChunk struct {
		bytecode []byte
		argNames []string
	}
)

const (
	luaStatePoolSize    = 10
	luaGlobalTableIndex = -2
	luaArrayTableIndex  = -3
	luaMapTableIndex    = -3
	luaArgLocalTemplate = "local %s = select(%d, ...)"
	luaReturnTemplate   = "return (%s)"
	luaScriptSeparator  = "\n"
	luaGlobalTableName  = "_G"
	luaChunkName        = "condition"
	luaStateName        = "state"
)

var (
	ErrLuaLoad      = errors.New("lua load error")
	ErrLuaExecution = errors.New("lua execution error")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

var luaReserved = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// NewLuaEnv creates a Lua evaluation environment with a state pool and a
// bytecode cache of the given size
func NewLuaEnv(cacheSize int) *LuaEnv {
	return &LuaEnv{
		statePool: make(chan *lua.State, luaStatePoolSize),
		chunks:    NewCache(cacheSize),
	}
}

// Compile checks the syntax of a Lua expression
func (e *LuaEnv) Compile(expr string) (Compiled, error) {
	if _, err := e.compile(expr, nil); err != nil {
		return nil, err
	}
	return &CompiledLua{source: expr}, nil
}

// Evaluate runs the expression against state and applies Lua truthiness to
// the result
func (e *LuaEnv) Evaluate(c Compiled, st api.State) (bool, error) {
	expr, ok := c.(*CompiledLua)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrBadCompiledType, c)
	}

	names := luaArgNames(st)
	chunk, err := e.chunk(expr.source, names)
	if err != nil {
		return false, err
	}

	L := e.getState()
	defer e.returnState(L)

	e.setupSandbox(L)
	if err := L.Load(
		bytes.NewReader(chunk.bytecode), luaChunkName, "b",
	); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	for _, name := range chunk.argNames {
		goToLua(L, st[name])
	}
	pushLuaMap(L, st)

	if err := L.ProtectedCall(len(chunk.argNames)+1, 1, 0); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}

	result := L.ToBoolean(-1)
	L.Pop(1)
	return result, nil
}

func (e *LuaEnv) chunk(source string, names []string) (*luaChunk, error) {
	key := source + "\x00" + strings.Join(names, ",")
	if c, ok := e.chunks.Get(key); ok {
		return c.(*luaChunk), nil
	}
	c, err := e.compile(source, names)
	if err != nil {
		return nil, err
	}
	e.chunks.Add(key, c)
	return c, nil
}

func (e *LuaEnv) compile(source string, argNames []string) (*luaChunk, error) {
	lines := make([]string, 0, len(argNames)+2)
	for i, name := range argNames {
		lines = append(lines, fmt.Sprintf(luaArgLocalTemplate, name, i+1))
	}
	lines = append(lines,
		fmt.Sprintf(luaArgLocalTemplate, luaStateName, len(argNames)+1),
		fmt.Sprintf(luaReturnTemplate, source),
	)
	src := strings.Join(lines, luaScriptSeparator)

	L := lua.NewState()
	e.setupSandbox(L)

	if err := lua.LoadString(L, src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	return &luaChunk{
		bytecode: buf.Bytes(),
		argNames: argNames,
	}, nil
}

func (e *LuaEnv) setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func (e *LuaEnv) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		return lua.NewState()
	}
}

func (e *LuaEnv) returnState(L *lua.State) {
	L.SetTop(0)

	select {
	case e.statePool <- L:
	default:
	}
}

func luaArgNames(st api.State) []string {
	var res []string
	for _, k := range st.Keys() {
		if isLuaIdentifier(k) && k != luaStateName {
			res = append(res, k)
		}
	}
	return res
}

func isLuaIdentifier(s string) bool {
	if s == "" || luaReserved[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
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
	case json.Number:
		f, _ := v.Float64()
		L.PushNumber(f)
	case []any:
		pushLuaArray(L, v)
	case []string:
		arr := make([]any, len(v))
		for i, s := range v {
			arr[i] = s
		}
		pushLuaArray(L, arr)
	case api.State:
		pushLuaMap(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaArrayTableIndex)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaMapTableIndex)
	}
}
