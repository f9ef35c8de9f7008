package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/expr"
)

func TestParseValid(t *testing.T) {
	valid := []string{
		"true",
		"NOT false",
		"input.load > 1000",
		"input.load > 1000 AND step1.ok == true",
		"a == 1 OR b == 2 AND c == 3",
		"(a == 1 OR b == 2) AND c == 3",
		"region IN ['us-east', 'us-west']",
		"region NOT IN ['eu-central']",
		"count IN [1, 2, 3]",
		"flags IN [true, false, null]",
		"NOT (a == 1)",
		"NOT NOT true",
		"items[0].kind == 'primary'",
		"run.caller != null",
		"input.ratio >= 0.5",
		"input.delta <= -3.25",
		"name == \"quoted\"",
		"[] == []",
	}
	for _, src := range valid {
		e, err := expr.Parse(src)
		if assert.NoError(t, err, src) {
			assert.Equal(t, src, e.String())
		}
	}
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	for _, src := range []string{
		"a == 1 and b == 2",
		"a == 1 Or b == 2",
		"not a == 1",
		"x in [1]",
		"x Not In [1]",
		"flag == True",
		"flag == FALSE",
		"value == NULL",
	} {
		_, err := expr.Parse(src)
		assert.NoError(t, err, src)
	}
}

func TestParseErrors(t *testing.T) {
	invalid := []string{
		"",
		"a ==",
		"== 1",
		"a = 1",
		"a ! b",
		"(a == 1",
		"a == 1)",
		"a == 1 extra",
		"a IN [1, 2",
		"a IN [b]",
		"a IN [[1]]",
		"a < b < c",
		"1 == 2 == 3",
		"'unterminated",
		"a.b. == 1",
		"a AND",
		"OR b",
		"a == 'bad \\q escape'",
		"-",
	}
	for _, src := range invalid {
		_, err := expr.Parse(src)
		assert.Error(t, err, src)
		var syn *expr.SyntaxError
		if assert.ErrorAs(t, err, &syn, src) {
			assert.ErrorIs(t, err, api.ErrCondition, src)
		}
	}
}

func TestChainedComparisonRejected(t *testing.T) {
	_, err := expr.Parse("1 < x < 10")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chained comparison")
}

func TestRefs(t *testing.T) {
	e, err := expr.Parse(
		"input.load > 1000 AND (step1.ok == true OR input.load < 10)",
	)
	assert.NoError(t, err)

	refs := e.Refs()
	assert.Len(t, refs, 3)
	assert.Equal(t, "input.load", refs[0].Raw)
	assert.Equal(t, "step1.ok", refs[1].Raw)
	assert.Equal(t, "input.load", refs[2].Raw)

	assert.Equal(t, api.Name("step1"), refs[1].Root)
	assert.Equal(t, "ok", refs[1].Path)
	assert.True(t, refs[0].IsInput())
	assert.True(t, refs[1].IsStep())
}

func TestRefsLiteralOnly(t *testing.T) {
	e, err := expr.Parse("1 < 2 AND true")
	assert.NoError(t, err)
	assert.Empty(t, e.Refs())
}

func TestParseIndexedRefs(t *testing.T) {
	e, err := expr.Parse("input.loads[2].value >= 100")
	assert.NoError(t, err)
	refs := e.Refs()
	assert.Len(t, refs, 1)
	assert.Equal(t, "loads.2.value", refs[0].Path)
}
