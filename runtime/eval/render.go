package eval

import (
	"sort"

	"github.com/pepl-lang/pepl/core/ast"
)

// SurfaceNode is the rendered UI tree handed back to a host. Props are
// sorted by key so two renders of identical state serialize
// byte-for-byte identically.
type SurfaceNode struct {
	Component string
	Props     []PropEntry
	Children  []*SurfaceNode
}

// PropEntry is one ordered prop on a SurfaceNode.
type PropEntry struct {
	Key   string
	Value *Value
}

// Render evaluates view name and returns the resulting Surface tree.
func (inst *SpaceInstance) Render(viewName string, args []*Value) (*SurfaceNode, error) {
	var view *ast.ViewDecl
	for i := range inst.body.Views {
		if inst.body.Views[i].Name.Name == viewName {
			view = &inst.body.Views[i]
			break
		}
	}
	if view == nil {
		return nil, newErr(Runtime, "no view named %q", viewName)
	}
	env := inst.baseEnv()
	for i, p := range view.Params {
		if i < len(args) {
			env.Define(p.Name.Name, args[i])
		}
	}
	roots, err := inst.renderUIBlock(&view.Body, env)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return &SurfaceNode{Component: "Column"}, nil
	}
	if len(roots) == 1 {
		return roots[0], nil
	}
	return &SurfaceNode{Component: "Column", Children: roots}, nil
}

func (inst *SpaceInstance) renderUIBlock(b *ast.UIBlock, env *Environment) ([]*SurfaceNode, error) {
	var out []*SurfaceNode
	for _, elem := range b.Elements {
		nodes, err := inst.renderUIElement(elem, env)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (inst *SpaceInstance) renderUIElement(elem ast.UIElement, env *Environment) ([]*SurfaceNode, error) {
	switch e := elem.(type) {
	case *ast.ComponentExpr:
		props := make([]PropEntry, 0, len(e.Props))
		for i := range e.Props {
			v, err := inst.evalExpr(e.Props[i].Value, env)
			if err != nil {
				return nil, err
			}
			props = append(props, PropEntry{Key: e.Props[i].Name.Name, Value: v})
		}
		sort.Slice(props, func(i, j int) bool { return props[i].Key < props[j].Key })

		var children []*SurfaceNode
		if e.Children != nil {
			var err error
			children, err = inst.renderUIBlock(e.Children, env)
			if err != nil {
				return nil, err
			}
		}
		return []*SurfaceNode{{Component: e.Name.Name, Props: props, Children: children}}, nil

	case *ast.UILetElement:
		v, err := inst.evalExpr(e.Let.Value, env)
		if err != nil {
			return nil, err
		}
		if e.Let.Name != nil {
			env.Define(e.Let.Name.Name, v)
		}
		return nil, nil

	case *ast.UIIf:
		cond, err := inst.evalExpr(e.Condition, env)
		if err != nil {
			return nil, err
		}
		if cond.Truthy() {
			return inst.renderUIBlock(&e.ThenBlock, env)
		}
		switch branch := e.ElseBranch.(type) {
		case *ast.UIElseIf:
			return inst.renderUIElement(branch.If, env)
		case *ast.UIElseBlock:
			return inst.renderUIBlock(&branch.Block, env)
		}
		return nil, nil

	case *ast.UIFor:
		iter, err := inst.evalExpr(e.Iterable, env)
		if err != nil {
			return nil, err
		}
		if iter.Kind != KList {
			return nil, newErr(TypeMismatch, "for iterable must be a list")
		}
		var out []*SurfaceNode
		for idx, item := range iter.List {
			child := env.Child()
			child.Define(e.Item.Name, item)
			if e.Index != nil {
				child.Define(e.Index.Name, NumberVal(float64(idx)))
			}
			nodes, err := inst.renderUIBlock(&e.Body, child)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil

	default:
		return nil, nil
	}
}
