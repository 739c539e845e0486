package checker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/runtime/checker"
	"github.com/pepl-lang/pepl/runtime/parser"
)

func check(t *testing.T, src string) []diagnostic.PeplError {
	t.Helper()
	file := span.NewSourceFile("t.pepl", src)
	prog, parseErrs := parser.Parse(file)
	require.Empty(t, parseErrs)
	return checker.Check(file, prog)
}

func hasCode(errs []diagnostic.PeplError, code diagnostic.Code) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func TestCheckCounterIsClean(t *testing.T) {
	src := `space Counter {
  state {
    count: number = 0
  }

  action increment() {
    set count = count + 1
  }

  action decrement() {
    set count = math.max(0, count - 1)
  }

  view main() -> Surface {
    Column {
      spacing: 8
    } {
      Text { value: "count: ${count}" }
      Button { label: "increment", onPress: increment }
    }
  }
}`
	errs := check(t, src)
	assert.Empty(t, errs)
}

func TestCheckSetOutsideActionIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  derived {
    y: number = 1
  }

  view main() -> Surface {
    Text { value: "${x}" }
  }
}

tests {
  test "bad" {
    set x = 1
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.StateMutatedOutsideAction))
}

func TestCheckDerivedFieldAssignmentIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  derived {
    doubled: number = x * 2
  }

  action bad() {
    set doubled = 4
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.DerivedFieldModified))
}

func TestCheckCredentialAssignmentIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  credentials {
    api_key: string
  }

  action bad() {
    set api_key = "nope"
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.CredentialModified))
}

func TestCheckArithmeticTypeMismatchIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action bad() {
    set x = x + "not a number"
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.TypeMismatch))
}

func TestCheckUndeclaredCapabilityIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action fetch() {
    let r = http.get("/x")
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.UndeclaredCapability))
}

func TestCheckCapabilityUsedOutsideActionIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  capabilities {
    required: [http]
  }

  derived {
    y: number = 1
  }

  view main() -> Surface {
    Text { value: "${x}" }
  }
}

tests {
  test "bad" {
    let r = http.get("/x")
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.StateMutatedOutsideAction))
}

func TestCheckUnknownComponentIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  view main() -> Surface {
    FancyWidget { value: "${x}" }
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.UnknownComponent))
}

func TestCheckNonExhaustiveMatchIsRejected(t *testing.T) {
	src := `space S {
  type Shape = {
    Circle(radius: number),
    Square(side: number)
  }

  state {
    shape: Shape = Circle(1)
  }

  action run() {
    let area = match shape {
      Circle(radius) -> radius
    }
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.NonExhaustiveMatch))
}

func TestCheckExhaustiveMatchWithWildcardIsClean(t *testing.T) {
	src := `space S {
  type Shape = {
    Circle(radius: number),
    Square(side: number)
  }

  state {
    shape: Shape = Circle(1)
  }

  action run() {
    let area = match shape {
      Circle(radius) -> radius
      _ -> 0
    }
  }
}`
	errs := check(t, src)
	assert.Empty(t, errs)
}

func TestCheckVariantConstructorArityMismatchIsRejected(t *testing.T) {
	src := `space S {
  type Shape = {
    Circle(radius: number),
    Square(side: number)
  }

  state {
    shape: Shape = Circle(1, 2)
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.WrongArgCount))
}

func TestCheckRedeclarationInSameScopeIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action run() {
    let a = 1
    let a = 2
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.VariableAlreadyDeclared))
}

func TestCheckShadowingAcrossScopesIsAllowed(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action run() {
    let a = 1
    if true {
      let a = 2
    }
  }
}`
	errs := check(t, src)
	assert.Empty(t, errs)
}

func TestCheckDirectActionRecursionIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action loop() {
    loop()
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.RecursionNotAllowed))
}

func TestCheckMutualActionRecursionIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action a() {
    b()
  }

  action b() {
    a()
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.RecursionNotAllowed))
}

func TestCheckNonRecursiveActionCallIsAllowed(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action helper() {
    set x = x + 1
  }

  action run() {
    helper()
  }
}`
	errs := check(t, src)
	assert.Empty(t, errs)
}

func TestCheckInvariantReferencingDerivedFieldIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  derived {
    doubled: number = x * 2
  }

  invariant boundsCheck {
    doubled < 1000
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.InvariantUnreachable))
}

func TestCheckForOverNonListIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action run() {
    for item in x {
      set x = x + item
    }
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.TypeMismatch))
}

func TestCheckUnknownNameIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action run() {
    set x = undefinedThing
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.UnresolvedSymbol))
}

func TestCheckWrongArgCountIsRejected(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action helper(n: number) {
    set x = n
  }

  action run() {
    helper()
  }
}`
	errs := check(t, src)
	assert.True(t, hasCode(errs, diagnostic.WrongArgCount))
}
