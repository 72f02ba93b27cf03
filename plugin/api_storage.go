package plugin

import (
	"database/sql"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// StorageAPI provides key-value storage namespaced per script unit.
// With a nil db every read misses and every write fails.
type StorageAPI struct {
	db        *sql.DB
	namespace string
}

// EnsureStorageSchema creates the plugin_storage table if needed
func EnsureStorageSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS plugin_storage (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		PRIMARY KEY (namespace, key)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create plugin_storage table: %w", err)
	}
	return nil
}

// NewStorageAPI creates a new storage API instance
func NewStorageAPI(db *sql.DB, namespace string) *StorageAPI {
	return &StorageAPI{
		db:        db,
		namespace: namespace,
	}
}

// Register adds the storage module to the Lua state
func (s *StorageAPI) Register(L *lua.LState) {
	storageMod := L.NewTable()

	storageMod.RawSetString("get", L.NewFunction(s.get))
	storageMod.RawSetString("set", L.NewFunction(s.set))
	storageMod.RawSetString("delete", L.NewFunction(s.delete))

	L.SetGlobal("storage", storageMod)
}

func (s *StorageAPI) get(L *lua.LState) int {
	key := L.CheckString(1)
	if s.db == nil {
		L.Push(lua.LNil)
		return 1
	}

	var value []byte
	err := s.db.QueryRow(
		"SELECT value FROM plugin_storage WHERE namespace = ? AND key = ?",
		s.namespace, key,
	).Scan(&value)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}

	L.Push(lua.LString(value))
	return 1
}

func (s *StorageAPI) set(L *lua.LState) int {
	key := L.CheckString(1)
	value := L.CheckString(2)
	if s.db == nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString("storage is disabled"))
		return 2
	}

	_, err := s.db.Exec(`
		INSERT INTO plugin_storage (namespace, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value
	`, s.namespace, key, []byte(value))
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	L.Push(lua.LTrue)
	return 1
}

func (s *StorageAPI) delete(L *lua.LState) int {
	key := L.CheckString(1)
	if s.db == nil {
		L.Push(lua.LFalse)
		return 1
	}

	_, err := s.db.Exec(
		"DELETE FROM plugin_storage WHERE namespace = ? AND key = ?",
		s.namespace, key,
	)
	if err != nil {
		L.Push(lua.LFalse)
		return 1
	}

	L.Push(lua.LTrue)
	return 1
}
