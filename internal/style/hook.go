package style

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Hook runs an optional Lua script that rewrites feature properties. The
// script defines a global function
//
//	function properties(key, kind, defaults) ... end
//
// receiving the filter name, the geometry kind ("node", "way", "relation" or
// "merged"), and the default property table. It returns the property table to
// attach, or nil to keep the defaults.
type Hook struct {
	mu sync.Mutex
	L  *lua.LState
	fn lua.LValue
}

// NewHook loads a hook from a Lua file.
func NewHook(path string) (*Hook, error) {
	h := newState()
	if err := h.L.DoFile(path); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to load Lua script: %w", err)
	}
	return h.bind()
}

// NewHookString loads a hook from Lua source.
func NewHookString(code string) (*Hook, error) {
	h := newState()
	if err := h.L.DoString(code); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to load Lua code: %w", err)
	}
	return h.bind()
}

func newState() *Hook {
	return &Hook{L: lua.NewState(lua.Options{SkipOpenLibs: false})}
}

func (h *Hook) bind() (*Hook, error) {
	h.fn = h.L.GetGlobal("properties")
	if h.fn.Type() != lua.LTFunction {
		h.Close()
		return nil, fmt.Errorf("script does not define a properties function")
	}
	return h, nil
}

// Close releases the interpreter.
func (h *Hook) Close() {
	h.L.Close()
}

// Properties invokes the script for one feature batch. The state is not
// reentrant, so calls are serialized.
func (h *Hook) Properties(key, kind string, defaults map[string]interface{}) (map[string]interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.L.CallByParam(lua.P{
		Fn:      h.fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(key), lua.LString(kind), mapToTable(h.L, defaults)); err != nil {
		return nil, fmt.Errorf("lua properties hook: %w", err)
	}

	ret := h.L.Get(-1)
	h.L.Pop(1)

	switch v := ret.(type) {
	case *lua.LNilType:
		return defaults, nil
	case *lua.LTable:
		return tableToMap(v), nil
	default:
		return nil, fmt.Errorf("properties hook returned %s, want table or nil", ret.Type())
	}
}

func mapToTable(L *lua.LState, m map[string]interface{}) *lua.LTable {
	tbl := L.NewTable()
	for k, v := range m {
		switch t := v.(type) {
		case string:
			tbl.RawSetString(k, lua.LString(t))
		case float64:
			tbl.RawSetString(k, lua.LNumber(t))
		case int:
			tbl.RawSetString(k, lua.LNumber(t))
		case bool:
			tbl.RawSetString(k, lua.LBool(t))
		case map[string]interface{}:
			tbl.RawSetString(k, mapToTable(L, t))
		}
	}
	return tbl
}

func tableToMap(tbl *lua.LTable) map[string]interface{} {
	result := make(map[string]interface{})
	tbl.ForEach(func(key, value lua.LValue) {
		if key.Type() != lua.LTString {
			return
		}
		k := string(key.(lua.LString))
		switch v := value.(type) {
		case lua.LString:
			result[k] = string(v)
		case lua.LNumber:
			result[k] = float64(v)
		case lua.LBool:
			result[k] = bool(v)
		case *lua.LTable:
			result[k] = tableToMap(v)
		}
	})
	return result
}
