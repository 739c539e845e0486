package emitter

import (
	"bytes"
	"encoding/binary"

	"github.com/pepl-lang/pepl/core/ast"
)

// emitBodies lowers every action, view, update/handleEvent handler,
// and test case into its own function body, recording a source map
// entry for each (plus one TestCount entry per tests block). Lambda
// literals get no function or entry of their own. Gas ticks are
// counted once at the top of every emitted function, once per loop
// header, and, in statement bodies, once per call expression; never
// per loop iteration.
func (e *Emitter) emitBodies() error {
	var payload bytes.Buffer

	for i := range e.body.Actions {
		a := &e.body.Actions[i]
		idx := e.recordFunc(a.Name.Name, KindAction, a.Span())
		e.emitFuncBody(&payload, idx, &a.Body)
	}

	for i := range e.body.Views {
		v := &e.body.Views[i]
		idx := e.recordFunc(v.Name.Name, KindView, v.Span())
		e.emitUIFuncBody(&payload, idx, &v.Body)
	}

	if e.body.Update != nil {
		idx := e.recordFunc("update", KindUpdate, e.body.Update.Span())
		e.emitFuncBody(&payload, idx, &e.body.Update.Body)
	}

	if e.body.HandleEvent != nil {
		idx := e.recordFunc("handle_event", KindHandleEvent, e.body.HandleEvent.Span())
		e.emitFuncBody(&payload, idx, &e.body.HandleEvent.Body)
	}

	for ti, block := range e.prog.Tests {
		countIdx := e.recordFunc("test_count", KindTestCount, block.Span())
		writeFuncHeader(&payload, countIdx, len(block.Cases))
		for ci := range block.Cases {
			tc := &block.Cases[ci]
			name := testFuncName(ti, ci, tc.Description)
			idx := e.recordFunc(name, KindTest, tc.Span())
			e.emitFuncBody(&payload, idx, &tc.Body)
		}
	}

	e.section("code", payload.Bytes())
	return nil
}

func testFuncName(blockIdx, caseIdx int, description string) string {
	if description != "" {
		return description
	}
	return "test_" + itoa(blockIdx) + "_" + itoa(caseIdx)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func writeFuncHeader(buf *bytes.Buffer, funcIndex, gasHint int) {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(funcIndex))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(gasHint))
	buf.Write(hdr[:])
}

// emitFuncBody counts the gas ticks of a statement block (one at entry
// plus one per loop header and call expression it contains) and writes
// the function's 8-byte header: its index and that tick count. No op
// stream is written.
func (e *Emitter) emitFuncBody(buf *bytes.Buffer, funcIndex int, body *ast.Block) {
	ticks := 1 // entry tick
	ast.Walk(body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.ForExpr:
			ticks++
		case *ast.Expr:
			switch node.Kind.(type) {
			case ast.Call, ast.QualifiedCall, ast.MethodCall:
				ticks++
			}
		}
		return true
	})
	writeFuncHeader(buf, funcIndex, ticks)
}

func (e *Emitter) emitUIFuncBody(buf *bytes.Buffer, funcIndex int, body *ast.UIBlock) {
	ticks := 1
	ast.Walk(body, func(n ast.Node) bool {
		if _, ok := n.(*ast.UIFor); ok {
			ticks++
		}
		return true
	})
	writeFuncHeader(buf, funcIndex, ticks)
}
