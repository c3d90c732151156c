package fake

import (
	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// DemoProgram builds a small scripted trace standing in for a real
// attached/launched process: a Main that loops calling Step, matching
// scenario A/B of the breakpoint-resolution test suite closely enough to
// exercise cmd/coredbg's headless smoke mode without a native binding.
func DemoProgram() Program {
	mod := model.Module{ID: 1, Name: "demo", Path: "demo.dll"}
	main := runtime.NativeFrame{Kind: model.FrameCLRManaged, Name: "Program.Main", Fullname: "/demo/Program.cs", Line: 8, Module: 1}
	step := runtime.NativeFrame{Kind: model.FrameCLRManaged, Name: "Program.Step", Fullname: "/demo/Program.cs", Line: 14, Module: 1}

	return Program{
		Modules: []model.Module{mod},
		Trace: []Line{
			{Module: 1, Fullname: "/demo/Program.cs", LineNum: 8, Func: "Main", Frames: []runtime.NativeFrame{main},
				Locals: map[string]Value{"iterations": {Text: "0", Type: "int"}}},
			{Module: 1, Fullname: "/demo/Program.cs", LineNum: 14, Func: "Step", Frames: []runtime.NativeFrame{step, main},
				Locals: map[string]Value{"n": {Text: "1", Type: "int"}}},
			{Module: 1, Fullname: "/demo/Program.cs", LineNum: 9, Func: "Main", Frames: []runtime.NativeFrame{main},
				Locals: map[string]Value{"iterations": {Text: "1", Type: "int"}}},
			{Module: 1, Fullname: "/demo/Program.cs", LineNum: 14, Func: "Step", Frames: []runtime.NativeFrame{step, main},
				Locals: map[string]Value{"n": {Text: "2", Type: "int"}}},
			{Module: 1, Fullname: "/demo/Program.cs", LineNum: 10, Func: "Main", Frames: []runtime.NativeFrame{main},
				Locals: map[string]Value{"iterations": {Text: "2", Type: "int"}}},
		},
	}
}
