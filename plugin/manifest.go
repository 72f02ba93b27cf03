package plugin

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Manifest describes one plugin declared by a script
type Manifest struct {
	Name        string
	Version     string
	Description string
	Author      string
	Symbol      string // global the declaration was found under
	Source      string // script path
}

// Declaration is a conforming plugin table together with its manifest
type Declaration struct {
	Manifest *Manifest
	Table    *lua.LTable
}

// ParseManifest checks that tbl satisfies the plugin contract and extracts its metadata.
// A conforming table has a non-empty string name and a run function.
func ParseManifest(symbol string, tbl *lua.LTable) (*Manifest, error) {
	name, ok := tbl.RawGetString("name").(lua.LString)
	if !ok {
		return nil, fmt.Errorf("%s: plugin must have a string name", symbol)
	}
	if name == "" {
		return nil, fmt.Errorf("%s: plugin name is empty", symbol)
	}
	if _, ok := tbl.RawGetString("run").(*lua.LFunction); !ok {
		return nil, fmt.Errorf("%s: plugin must define run()", symbol)
	}

	manifest := &Manifest{
		Name:   string(name),
		Symbol: symbol,
	}
	if v, ok := tbl.RawGetString("version").(lua.LString); ok {
		manifest.Version = string(v)
	}
	if v, ok := tbl.RawGetString("description").(lua.LString); ok {
		manifest.Description = string(v)
	}
	if v, ok := tbl.RawGetString("author").(lua.LString); ok {
		manifest.Author = string(v)
	}
	return manifest, nil
}

// Discover walks the globals in symbol order and returns every table that
// satisfies the plugin contract. base is never returned, and a table bound
// to several globals is returned once under its first symbol.
func Discover(globals *lua.LTable, base *lua.LTable) []*Declaration {
	var symbols []string
	globals.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		if tbl, ok := v.(*lua.LTable); ok && tbl != base && tbl != globals {
			symbols = append(symbols, string(key))
		}
	})
	sort.Strings(symbols)

	var decls []*Declaration
	seen := make(map[*lua.LTable]bool)
	for _, symbol := range symbols {
		tbl := globals.RawGetString(symbol).(*lua.LTable)
		if seen[tbl] {
			continue
		}
		seen[tbl] = true
		manifest, err := ParseManifest(symbol, tbl)
		if err != nil {
			continue
		}
		decls = append(decls, &Declaration{Manifest: manifest, Table: tbl})
	}
	return decls
}
