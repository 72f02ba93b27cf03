package plugin

import (
	"encoding/json"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"go-editor/observability"
)

// UtilsAPI provides log and json helpers to scripts
type UtilsAPI struct {
	logger *observability.Logger
}

// NewUtilsAPI creates a new utils API logging on behalf of the script unit
func NewUtilsAPI(logger *observability.Logger, unit string) *UtilsAPI {
	return &UtilsAPI{logger: logger.With("unit", unit)}
}

// Register adds utility functions to the Lua state
func (u *UtilsAPI) Register(L *lua.LState) {
	L.SetGlobal("log", L.NewFunction(u.logFn))

	jsonMod := L.NewTable()
	jsonMod.RawSetString("encode", L.NewFunction(u.jsonEncode))
	jsonMod.RawSetString("decode", L.NewFunction(u.jsonDecode))
	L.SetGlobal("json", jsonMod)
}

func (u *UtilsAPI) logFn(L *lua.LState) int {
	u.logger.Info(L.CheckString(1))
	return 0
}

func (u *UtilsAPI) jsonEncode(L *lua.LState) int {
	v, err := luaToGo(L.Get(1), make(map[*lua.LTable]bool), 0)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	data, err := json.Marshal(v)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(data))
	return 1
}

func (u *UtilsAPI) jsonDecode(L *lua.LState) int {
	var v interface{}
	if err := json.Unmarshal([]byte(L.CheckString(1)), &v); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(goToLua(L, v))
	return 1
}

// maxEncodeDepth bounds table nesting accepted by json.encode
const maxEncodeDepth = 200

var (
	errCyclicTable = errors.New("cannot encode cyclic table")
	errTooDeep     = fmt.Errorf("cannot encode tables nested deeper than %d levels", maxEncodeDepth)
)

// luaToGo converts a Lua value to a Go value. Tables whose keys are exactly
// 1..n become slices; any other table becomes a map. open holds the tables
// currently being converted, so a table reachable from itself is an error
// while a table shared by two siblings is not.
func luaToGo(val lua.LValue, open map[*lua.LTable]bool, depth int) (interface{}, error) {
	switch v := val.(type) {
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		if open[v] {
			return nil, errCyclicTable
		}
		if depth >= maxEncodeDepth {
			return nil, errTooDeep
		}
		open[v] = true
		defer delete(open, v)

		if n, ok := sequenceLen(v); ok {
			arr := make([]interface{}, n)
			for i := 1; i <= n; i++ {
				item, err := luaToGo(v.RawGetInt(i), open, depth+1)
				if err != nil {
					return nil, err
				}
				arr[i-1] = item
			}
			return arr, nil
		}

		m := make(map[string]interface{})
		var err error
		v.ForEach(func(k, item lua.LValue) {
			if err != nil {
				return
			}
			m[k.String()], err = luaToGo(item, open, depth+1)
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, nil
	}
}

// sequenceLen reports whether every key of tbl is an integer in 1..n, and n
func sequenceLen(tbl *lua.LTable) (int, bool) {
	count, maxIndex := 0, 0
	isArray := true
	tbl.ForEach(func(k, _ lua.LValue) {
		count++
		num, ok := k.(lua.LNumber)
		if !ok || num < 1 || num != lua.LNumber(int(num)) {
			isArray = false
			return
		}
		if int(num) > maxIndex {
			maxIndex = int(num)
		}
	})
	if !isArray || count == 0 || count != maxIndex {
		return 0, false
	}
	return maxIndex, true
}

// goToLua converts a decoded JSON value to a Lua value
func goToLua(L *lua.LState, val interface{}) lua.LValue {
	switch v := val.(type) {
	case bool:
		return lua.LBool(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []interface{}:
		tbl := L.NewTable()
		for i, item := range v {
			tbl.RawSetInt(i+1, goToLua(L, item))
		}
		return tbl
	case map[string]interface{}:
		tbl := L.NewTable()
		for k, item := range v {
			tbl.RawSetString(k, goToLua(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}
