package plugin

import (
	lua "github.com/yuin/gopher-lua"
)

// BaseAPI exposes the abstract base as the PluginBase global
type BaseAPI struct {
	table *lua.LTable
}

// NewBaseAPI creates a new base API
func NewBaseAPI() *BaseAPI {
	return &BaseAPI{}
}

// Register adds PluginBase to the Lua state and returns the table so discovery can skip it
func (b *BaseAPI) Register(L *lua.LState) *lua.LTable {
	base := L.NewTable()
	base.RawSetString("name", lua.LString(BaseName))
	base.RawSetString("run", L.NewFunction(b.run))
	base.RawSetString("extend", L.NewFunction(b.extend))
	L.SetGlobal("PluginBase", base)
	b.table = base
	return base
}

func (b *BaseAPI) run(L *lua.LState) int {
	L.RaiseError("%s", ErrNotImplemented.Error())
	return 0
}

// extend copies every field of PluginBase missing from the given table.
// Works as both PluginBase.extend(t) and PluginBase:extend(t).
func (b *BaseAPI) extend(L *lua.LState) int {
	base := b.table

	tbl := L.CheckTable(1)
	if tbl == base && L.GetTop() >= 2 {
		tbl = L.CheckTable(2)
	}

	base.ForEach(func(k, v lua.LValue) {
		if k.String() == "extend" {
			return
		}
		if tbl.RawGet(k) == lua.LNil {
			tbl.RawSet(k, v)
		}
	})

	L.Push(tbl)
	return 1
}
