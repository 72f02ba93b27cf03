package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds loading a script and every call into it
const DefaultTimeout = 30 * time.Second

// Sandbox wraps a Lua state with a restricted library set and a call timeout.
// One sandbox backs exactly one script file.
type Sandbox struct {
	L       *lua.LState
	source  string
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// NewSandbox creates a new sandboxed Lua environment for the script at source
func NewSandbox(source string, timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	// Open only safe libraries
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawequal", "rawget", "rawset",
		"getmetatable", "setmetatable", "collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}

	return &Sandbox{
		L:       L,
		source:  source,
		timeout: timeout,
	}
}

// Close shuts down the sandbox. Calling it twice is a no-op.
func (s *Sandbox) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}

// Source returns the path of the script this sandbox runs
func (s *Sandbox) Source() string { return s.source }

// LoadSource compiles and executes the top-level chunk of the script
func (s *Sandbox) LoadSource(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("sandbox is closed")
	}

	fn, err := s.L.Load(strings.NewReader(code), s.source)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.L.SetContext(ctx)

	s.L.Push(fn)
	if err := s.L.PCall(0, 0, nil); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("plugin load timed out after %v", s.timeout)
		}
		return err
	}
	return nil
}

// CallMethod calls tbl:method() with timeout protection
func (s *Sandbox) CallMethod(ctx context.Context, tbl *lua.LTable, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("sandbox is closed")
	}

	fn, ok := tbl.RawGetString(method).(*lua.LFunction)
	if !ok {
		return fmt.Errorf("%s is not a function", method)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.L.SetContext(ctx)

	s.L.Push(fn)
	s.L.Push(tbl)
	if err := s.L.PCall(1, 0, nil); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %v", method, s.timeout)
		}
		return fmt.Errorf("%s failed: %w", method, err)
	}
	return nil
}

// Globals returns the global table. Callers must not run Lua code with it.
func (s *Sandbox) Globals() *lua.LTable {
	return s.L.G.Global
}
