package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

func (s *State) installBuildModule() {
	mod := s.L.SetFuncs(s.L.NewTable(), map[string]lua.LGFunction{
		"log":       s.luaLog,
		"verbose":   s.luaVerbose,
		"ok":        s.luaOK,
		"warn":      s.luaWarn,
		"run":       s.luaRun,
		"files":     s.luaFiles,
		"workspace": s.luaWorkspace,
	})
	s.L.SetGlobal("build", mod)
	s.L.SetGlobal("print", s.L.NewFunction(s.luaPrint))
}

// message joins all arguments with spaces using Lua's tostring rules.
func message(L *lua.LState) string {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	return strings.Join(parts, " ")
}

func (s *State) luaLog(L *lua.LState) int {
	s.opts.Logger.Info("%s", message(L))
	return 0
}

func (s *State) luaPrint(L *lua.LState) int {
	return s.luaLog(L)
}

func (s *State) luaVerbose(L *lua.LState) int {
	s.opts.Logger.Verbose("%s", message(L))
	return 0
}

func (s *State) luaOK(L *lua.LState) int {
	s.opts.Logger.OK("%s", message(L))
	return 0
}

func (s *State) luaWarn(L *lua.LState) int {
	msg := message(L)
	s.warnings = append(s.warnings, msg)
	s.opts.Logger.Warn("%s", msg)
	return 0
}

// luaRun implements build.run(cmd, args...) -> exitCode, output.
// A command that cannot be started yields -1 and the error text.
func (s *State) luaRun(L *lua.LState) int {
	if s.opts.Run == nil {
		L.RaiseError("build.run is not available")
		return 0
	}
	command := L.CheckString(1)
	var args []string
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, L.CheckString(i))
	}

	code, output, err := s.opts.Run(s.ctx, command, args)
	if err != nil {
		L.Push(lua.LNumber(-1))
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(code))
	L.Push(lua.LString(output))
	return 2
}

// luaFiles implements build.files(patterns...) -> table of paths.
func (s *State) luaFiles(L *lua.LState) int {
	if s.opts.Expand == nil {
		L.RaiseError("build.files is not available")
		return 0
	}
	var patterns []string
	for i := 1; i <= L.GetTop(); i++ {
		patterns = append(patterns, L.CheckString(i))
	}

	files, err := s.opts.Expand(s.ctx, patterns)
	if err != nil {
		L.RaiseError("build.files: %s", err.Error())
		return 0
	}
	tbl := L.CreateTable(len(files), 0)
	for _, f := range files {
		tbl.Append(lua.LString(f))
	}
	L.Push(tbl)
	return 1
}

func (s *State) luaWorkspace(L *lua.LState) int {
	L.Push(lua.LString(s.opts.Workspace))
	return 1
}
