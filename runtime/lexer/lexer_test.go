package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/core/token"
	"github.com/pepl-lang/pepl/runtime/lexer"
)

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestLexKeywordsAndIdentifiers(t *testing.T) {
	file := span.NewSourceFile("t.pepl", "space Counter state action")
	tokens, errs := lexer.Lex(file)
	require.Empty(t, errs)
	assert.Equal(t, []token.Kind{
		token.KwSpace, token.Identifier, token.KwState, token.KwAction, token.Eof,
	}, kinds(tokens))
}

func TestLexNumber(t *testing.T) {
	file := span.NewSourceFile("t.pepl", "42 3.14 1e3 2.5e-2")
	tokens, errs := lexer.Lex(file)
	require.Empty(t, errs)
	require.Len(t, tokens, 5)
	assert.Equal(t, float64(42), tokens[0].Value)
	assert.Equal(t, 3.14, tokens[1].Value)
	assert.Equal(t, float64(1000), tokens[2].Value)
	assert.InDelta(t, 0.025, tokens[3].Value, 1e-9)
}

func TestLexString(t *testing.T) {
	file := span.NewSourceFile("t.pepl", `"hello world"`)
	tokens, errs := lexer.Lex(file)
	require.Empty(t, errs)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.String, tokens[0].Kind)
	assert.Equal(t, "hello world", tokens[0].Text)
}

func TestLexUnterminatedString(t *testing.T) {
	file := span.NewSourceFile("t.pepl", `"hello`)
	_, errs := lexer.Lex(file)
	require.Len(t, errs, 1)
	assert.EqualValues(t, 101, errs[0].Code)
}

func TestLexInterpolatedString(t *testing.T) {
	file := span.NewSourceFile("t.pepl", `"count is ${state.count}!"`)
	tokens, errs := lexer.Lex(file)
	require.Empty(t, errs)
	require.Len(t, tokens, 2)
	require.Equal(t, token.InterpString, tokens[0].Kind)
	require.Len(t, tokens[0].Parts, 3)
	assert.Equal(t, "count is ", tokens[0].Parts[0].Literal)
	assert.True(t, tokens[0].Parts[1].IsExpr)
	assert.Equal(t, "state.count", tokens[0].Parts[1].ExprSource)
	assert.Equal(t, "!", tokens[0].Parts[2].Literal)
}

func TestLexBlockCommentRejected(t *testing.T) {
	file := span.NewSourceFile("t.pepl", "/* nope */ space")
	tokens, errs := lexer.Lex(file)
	require.Len(t, errs, 1)
	assert.EqualValues(t, 603, errs[0].Code)
	assert.Equal(t, token.KwSpace, tokens[0].Kind)
}

func TestLexLineComments(t *testing.T) {
	file := span.NewSourceFile("t.pepl", "space # trailing comment\n// another\nstate")
	tokens, errs := lexer.Lex(file)
	require.Empty(t, errs)
	assert.Equal(t, []token.Kind{
		token.KwSpace, token.Newline, token.KwState, token.Eof,
	}, kinds(tokens))
}

func TestLexPunctuationAndOperators(t *testing.T) {
	file := span.NewSourceFile("t.pepl", "-> == != <= >= ?? ... { } ( ) [ ] , : . ? _")
	tokens, errs := lexer.Lex(file)
	require.Empty(t, errs)
	assert.Equal(t, []token.Kind{
		token.Arrow, token.EqEq, token.NotEq, token.LessEq, token.GreaterEq,
		token.QuestionQuestion, token.Ellipsis, token.LBrace, token.RBrace,
		token.LParen, token.RParen, token.LBracket, token.RBracket,
		token.Comma, token.Colon, token.Dot, token.Question, token.Underscore,
		token.Eof,
	}, kinds(tokens))
}

func TestLexModuleNameKeywordAsIdentifier(t *testing.T) {
	// Module-name keywords like "string" and "list" must still lex as
	// their own token kinds; it's the parser's job to re-accept them
	// as identifiers in qualified-call/field-name position.
	file := span.NewSourceFile("t.pepl", "string.length(x)")
	tokens, errs := lexer.Lex(file)
	require.Empty(t, errs)
	assert.Equal(t, token.KwStringMod, tokens[0].Kind)
}

func TestLexCollapsesConsecutiveNewlines(t *testing.T) {
	file := span.NewSourceFile("t.pepl", "a\n\n\nb")
	tokens, errs := lexer.Lex(file)
	require.Empty(t, errs)
	assert.Equal(t, []token.Kind{
		token.Identifier, token.Newline, token.Identifier, token.Eof,
	}, kinds(tokens))
}

func TestLexDeterminism(t *testing.T) {
	src := `space Counter {
  state { count: number = 0 }
  action increment() { set state.count = state.count + 1 }
}`
	file := span.NewSourceFile("t.pepl", src)
	first, _ := lexer.Lex(file)
	for i := 0; i < 50; i++ {
		again, _ := lexer.Lex(span.NewSourceFile("t.pepl", src))
		require.Equal(t, first, again, "determinism failure at iteration %d", i)
	}
}
