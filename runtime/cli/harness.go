// Package cli wraps the compiler facade in runtime/pipeline with a
// small Cobra command tree: type-check, compile, and run.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pepl-lang/pepl/core/ast"
	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/runtime/eval"
	"github.com/pepl-lang/pepl/runtime/parser"
	"github.com/pepl-lang/pepl/runtime/pipeline"
)

// Harness is the static Cobra CLI wrapping the compiler pipeline.
type Harness struct {
	rootCmd *cobra.Command
	noColor bool
}

// NewHarness builds the root command and registers every subcommand.
func NewHarness(name, version string) *Harness {
	h := &Harness{
		rootCmd: &cobra.Command{
			Use:     name,
			Short:   "PEPL compiler",
			Version: version,
		},
	}
	h.rootCmd.PersistentFlags().BoolVar(&h.noColor, "no-color", false, "disable colored diagnostic output")

	h.rootCmd.AddCommand(h.typeCheckCmd())
	h.rootCmd.AddCommand(h.compileCmd())
	h.rootCmd.AddCommand(h.runCmd())
	return h
}

// Execute runs the CLI against os.Args.
func (h *Harness) Execute() error { return h.rootCmd.Execute() }

// GetRootCommand returns the root Cobra command for customization.
func (h *Harness) GetRootCommand() *cobra.Command { return h.rootCmd }

func (h *Harness) typeCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "type-check <file>",
		Short: "Type-check a space without compiling it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result := pipeline.TypeCheck(args[0], string(source))
			h.printDiagnostics(result.Errors)
			if result.Errors.HasErrors() {
				return fmt.Errorf("type check failed with %d error(s)", result.Errors.TotalErrors)
			}
			return nil
		},
	}
}

func (h *Harness) compileCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a space to a bytecode module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result := pipeline.Compile(args[0], string(source))
			h.printDiagnostics(result.Errors)
			if result.Errors.HasErrors() {
				return fmt.Errorf("compile failed with %d error(s)", result.Errors.TotalErrors)
			}
			if outPath == "" {
				outPath = args[0] + ".peplmod"
			}
			return os.WriteFile(outPath, result.Module.Bytes, 0o644)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output module path (default: <file>.peplmod)")
	return cmd
}

func (h *Harness) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file> <action> [key=value ...]",
		Short: "Run an action against the tree-walking evaluator and print the resulting state",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, rawArgs []string) error {
			source, err := os.ReadFile(rawArgs[0])
			if err != nil {
				return err
			}
			actionName := rawArgs[1]
			kwargs := ParseArgs(rawArgs[2:])

			file := span.NewSourceFile(rawArgs[0], string(source))
			prog, parseErrs := parser.Parse(file)
			if len(parseErrs) > 0 {
				return fmt.Errorf("parse failed: %s", parseErrs[0].Message)
			}

			inst, err := eval.NewSpaceInstance(prog, 0)
			if err != nil {
				return err
			}

			var action *ast.ActionDecl
			for i := range prog.SpaceVal.Body.Actions {
				if prog.SpaceVal.Body.Actions[i].Name.Name == actionName {
					action = &prog.SpaceVal.Body.Actions[i]
					break
				}
			}
			if action == nil {
				return fmt.Errorf("no action named %q", actionName)
			}

			callArgs := make([]*eval.Value, len(action.Params))
			for i, p := range action.Params {
				callArgs[i] = argValue(p.TypeAnn.Kind, kwargs, p.Name.Name)
			}

			if _, err := inst.DispatchAction(actionName, callArgs); err != nil {
				return err
			}

			state := map[string]string{}
			for _, f := range prog.SpaceVal.Body.State.Fields {
				if v, ok := inst.GetState(f.Name.Name); ok {
					state[f.Name.Name] = v.String_()
				}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
}

// argValue converts a raw "key=value" CLI token into the Value shape
// the action parameter declares, defaulting to a zero value of that
// kind when the token is absent or malformed.
func argValue(kind ast.TypeKind, args Args, name string) *eval.Value {
	switch kind.(type) {
	case ast.NumberType:
		return eval.NumberVal(args.GetNumber(name, 0))
	case ast.BoolType:
		return eval.BoolVal(args.GetBool(name, false))
	default:
		return eval.StringVal(args.GetString(name, ""))
	}
}

func (h *Harness) printDiagnostics(errs diagnostic.CompileErrors) {
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	for _, e := range errs.Errors {
		_ = enc.Encode(e)
	}
	for _, w := range errs.Warnings {
		_ = enc.Encode(w)
	}
}
