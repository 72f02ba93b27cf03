package plugin

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// EditorAPI gives scripts access to the host's text buffer
type EditorAPI struct {
	host Host
}

// NewEditorAPI creates a new editor API bound to host
func NewEditorAPI(host Host) *EditorAPI {
	return &EditorAPI{host: host}
}

// Register adds the editor module to the Lua state and returns it.
// The same table is attached to every constructed plugin as self.editor.
func (e *EditorAPI) Register(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	mod.RawSetString("get_text", L.NewFunction(e.getText))
	mod.RawSetString("set_text", L.NewFunction(e.setText))
	mod.RawSetString("append", L.NewFunction(e.appendText))
	L.SetGlobal("editor", mod)

	// print goes to the host console instead of the process stdout
	L.SetGlobal("print", L.NewFunction(e.print))
	return mod
}

func (e *EditorAPI) print(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(e.host.Console(), strings.Join(parts, "\t"))
	return 0
}

func (e *EditorAPI) getText(L *lua.LState) int {
	L.Push(lua.LString(e.host.Text()))
	return 1
}

func (e *EditorAPI) setText(L *lua.LState) int {
	e.host.SetText(L.CheckString(1))
	return 0
}

func (e *EditorAPI) appendText(L *lua.LState) int {
	e.host.SetText(e.host.Text() + L.CheckString(1))
	return 0
}
