package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

// evaluateCondition applies a parsed UCL condition tree (§4.4
// "Conditions") to one block, used by DELETE WHERE and PRUNE WHERE.
func evaluateCondition(cond ucl.Condition, b *document.Block) (bool, error) {
	switch c := cond.(type) {
	case ucl.Comparison:
		return evalComparison(c, b)
	case ucl.ContainsCondition:
		return evalContains(c, b)
	case ucl.MatchesCondition:
		return evalMatches(c, b)
	case ucl.AndCondition:
		l, err := evaluateCondition(c.Left, b)
		if err != nil || !l {
			return false, err
		}
		return evaluateCondition(c.Right, b)
	case ucl.OrCondition:
		l, err := evaluateCondition(c.Left, b)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evaluateCondition(c.Right, b)
	case ucl.NotCondition:
		inner, err := evaluateCondition(c.Inner, b)
		if err != nil {
			return false, err
		}
		return !inner, nil
	}
	return false, ucerr.New(ucerr.KindInternal, ucerr.CodeMalformedCommand, fmt.Sprintf("unknown condition node %T", cond))
}

func fieldValue(field string, b *document.Block) (any, bool) {
	switch field {
	case "label":
		return b.Metadata.Label, b.Metadata.HasLabel
	case "role", "role.category":
		if b.Metadata.Role == nil {
			return "", false
		}
		return b.Metadata.Role.Category, true
	case "role.subrole":
		if b.Metadata.Role == nil {
			return "", false
		}
		return b.Metadata.Role.Subrole, true
	case "content.type":
		if b.Content == nil {
			return "", false
		}
		return string(b.Content.Type()), true
	case "content.text":
		return textOf(b.Content), true
	case "version":
		return int(b.Version), true
	case "tags":
		return b.Metadata.TagList(), true
	}
	if strings.HasPrefix(field, "custom.") {
		v, ok := b.Metadata.Custom[strings.TrimPrefix(field, "custom.")]
		return v, ok
	}
	return nil, false
}

// textOf extracts the best-effort textual representation of a block's
// content for CONTAINS/MATCHES evaluation, mirroring the same
// extraction the agent package's find_by_pattern applies.
func textOf(c content.Content) string {
	switch v := c.(type) {
	case content.Text:
		return v.Text
	case content.Code:
		return v.Source
	case content.Math:
		return v.Expression
	default:
		if c == nil {
			return ""
		}
		return string(c.Canonicalize())
	}
}

func evalComparison(c ucl.Comparison, b *document.Block) (bool, error) {
	actual, ok := fieldValue(c.Field, b)
	if !ok {
		return false, nil
	}
	cmp, ok := compareValues(actual, c.Value)
	if !ok {
		return false, nil
	}
	switch c.Op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	}
	return false, ucerr.New(ucerr.KindSyntax, ucerr.CodeMalformedCommand, "unknown comparison operator "+c.Op)
}

// compareValues returns -1/0/1 and true when actual and want are
// comparable as numbers or strings; false otherwise.
func compareValues(actual, want any) (int, bool) {
	af, aok := toFloat(actual)
	wf, wok := toFloat(want)
	if aok && wok {
		switch {
		case af < wf:
			return -1, true
		case af > wf:
			return 1, true
		default:
			return 0, true
		}
	}
	as := fmt.Sprintf("%v", actual)
	ws := fmt.Sprintf("%v", want)
	return strings.Compare(as, ws), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func evalContains(c ucl.ContainsCondition, b *document.Block) (bool, error) {
	actual, ok := fieldValue(c.Field, b)
	if !ok {
		return false, nil
	}
	want := fmt.Sprintf("%v", c.Value)
	switch v := actual.(type) {
	case []string:
		for _, item := range v {
			if item == want {
				return true, nil
			}
		}
		return false, nil
	default:
		return strings.Contains(fmt.Sprintf("%v", actual), want), nil
	}
}

func evalMatches(c ucl.MatchesCondition, b *document.Block) (bool, error) {
	actual, ok := fieldValue(c.Field, b)
	if !ok {
		return false, nil
	}
	re, err := regexp.Compile(c.Pattern)
	if err != nil {
		return false, ucerr.Wrap(ucerr.KindSyntax, ucerr.CodeMalformedCommand, "invalid MATCHES pattern", err)
	}
	return re.MatchString(fmt.Sprintf("%v", actual)), nil
}
