package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/dicelang/internal/scripting"
)

func newScriptCommand(current func() *app) *cobra.Command {
	var (
		dir string
		fn  string
	)

	cmd := &cobra.Command{
		Use:   "script --dir <dir> --fn <function> [arg...]",
		Short: "Call a function from a directory of Lua roll tables",
		Long: "script loads every *.lua file in --dir into a sandboxed VM with the dice module\n" +
			"available, calls --fn with the remaining arguments and prints its return value.\n" +
			"Numeric arguments are passed as numbers, everything else as strings.",
		Example: "  roll script --dir tables --fn forest_encounter\n" +
			"  roll script --dir tables --fn trinket -o json",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			mgr := scripting.NewManager(a.engine, a.logger)
			defer mgr.Close()

			name := filepath.Base(dir)
			if err := mgr.Load(name, dir, a.cfg.Scripting.InstructionLimit); err != nil {
				return err
			}
			ret, err := mgr.Call(name, fn, luaArgs(args)...)
			if err != nil {
				return err
			}

			value := fromLua(ret)
			if a.output != FormatText {
				return encode(cmd.OutOrStdout(), a.output, value)
			}
			if _, ok := ret.(*lua.LTable); ok {
				return encode(cmd.OutOrStdout(), FormatYAML, value)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ret.String())
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "tables", "directory of Lua roll tables")
	cmd.Flags().StringVar(&fn, "fn", "", "global Lua function to call")
	_ = cmd.MarkFlagRequired("fn")
	return cmd
}

func luaArgs(args []string) []lua.LValue {
	out := make([]lua.LValue, len(args))
	for i, s := range args {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			out[i] = lua.LNumber(n)
			continue
		}
		out[i] = lua.LString(s)
	}
	return out
}

// fromLua converts a Lua value into plain Go values for encoding. Tables
// whose keys are exactly 1..n become slices; other tables become maps keyed
// by the string form of each key.
func fromLua(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		n := v.Len()
		count := 0
		v.ForEach(func(lua.LValue, lua.LValue) { count++ })
		if n > 0 && n == count {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, fromLua(v.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]any, count)
		v.ForEach(func(k, val lua.LValue) {
			m[k.String()] = fromLua(val)
		})
		return m
	default:
		if v == lua.LNil {
			return nil
		}
		return v.String()
	}
}
