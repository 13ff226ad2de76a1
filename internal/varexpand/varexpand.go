// Package varexpand renders {name} placeholders against a variable set.
//
// Placeholders expand recursively. A placeholder whose content is an
// arithmetic expression, and a variable whose expanded value is one, is
// evaluated with a JavaScript runtime (goja), so "{n_nodes}*{ppn}" yields a
// number. Unknown placeholders are left verbatim so that later stages
// (for example the runner's own {log_file}) can fill them. "\{" and "\}"
// escape literal braces.
package varexpand

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/me/goramble/pkg/model"
)

var (
	arithmeticRe  = regexp.MustCompile(`^[\s0-9.+\-*/%()]+$`)
	operatorRe    = regexp.MustCompile(`[0-9)]\s*[+\-*/%]\s*[0-9(.]`)
	// Integer tokens with a leading zero ("05", "0010") are not numbers.
	leadingZeroRe = regexp.MustCompile(`(^|[^0-9.])0[0-9]`)
)

// CycleError is returned when variables reference each other in a loop.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "variable expansion cycle: " + strings.Join(e.Chain, " -> ")
}

// Expander renders strings against one variable set. It caches expanded
// variables and is not safe for concurrent use.
type Expander struct {
	vars  *model.Map
	cache map[string]string
	vm    *goja.Runtime
}

// New creates an Expander over vars. vars is read, never modified.
func New(vars *model.Map) *Expander {
	return &Expander{vars: vars, cache: make(map[string]string)}
}

// Expand renders every placeholder in s.
func (e *Expander) Expand(s string) (string, error) {
	return e.expand(s, nil)
}

// ExpandAll renders each string in list.
func (e *Expander) ExpandAll(list []string) ([]string, error) {
	out := make([]string, len(list))
	for i, s := range list {
		v, err := e.Expand(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Variable returns the fully expanded value of a scalar variable.
func (e *Expander) Variable(name string) (string, bool, error) {
	v, ok := e.vars.Get(name)
	if !ok {
		return "", false, nil
	}
	if _, isVector := v.([]any); isVector {
		return "", false, nil
	}
	s, err := e.variable(name, nil)
	return s, true, err
}

// Variables returns a copy of the variable set with every scalar string
// value expanded. Numbers are kept as they are and vectors are skipped.
func (e *Expander) Variables() (*model.Map, error) {
	out := model.NewMap()
	var firstErr error
	e.vars.Each(func(name string, v any) {
		if firstErr != nil {
			return
		}
		s, isString := v.(string)
		if !isString || !strings.Contains(s, "{") {
			out.Set(name, model.CloneValue(v))
			return
		}
		expanded, err := e.variable(name, nil)
		if err != nil {
			firstErr = err
			return
		}
		out.Set(name, expanded)
	})
	return out, firstErr
}

func (e *Expander) variable(name string, stack []string) (string, error) {
	if cached, ok := e.cache[name]; ok {
		return cached, nil
	}
	for _, s := range stack {
		if s == name {
			return "", &CycleError{Chain: append(append([]string(nil), stack...), name)}
		}
	}
	v, _ := e.vars.Get(name)
	raw := model.ScalarString(v)
	expanded, err := e.expand(raw, append(stack, name))
	if err != nil {
		return "", err
	}
	if strings.Contains(raw, "{") {
		expanded = e.evalMath(expanded)
	}
	e.cache[name] = expanded
	return expanded, nil
}

func (e *Expander) expand(s string, stack []string) (string, error) {
	if !strings.ContainsAny(s, "{\\") {
		return s, nil
	}
	var out strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c == '\\' && i+1 < len(s) && (s[i+1] == '{' || s[i+1] == '}') {
			out.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c != '{' {
			out.WriteByte(c)
			i++
			continue
		}
		end := matchingBrace(s, i)
		if end < 0 {
			out.WriteString(s[i:])
			break
		}
		inner, err := e.expand(s[i+1:end], stack)
		if err != nil {
			return "", err
		}
		resolved, ok, err := e.resolve(inner, stack)
		if err != nil {
			return "", err
		}
		if ok {
			out.WriteString(resolved)
		} else {
			out.WriteString("{" + inner + "}")
		}
		i = end + 1
	}
	return out.String(), nil
}

func (e *Expander) resolve(inner string, stack []string) (string, bool, error) {
	if v, ok := e.vars.Get(inner); ok {
		if _, isVector := v.([]any); isVector {
			return "", false, nil
		}
		s, err := e.variable(inner, stack)
		return s, err == nil, err
	}
	if isArithmetic(inner) {
		if v, ok := e.eval(inner); ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (e *Expander) evalMath(s string) string {
	if !isArithmetic(s) {
		return s
	}
	if v, ok := e.eval(s); ok {
		return v
	}
	return s
}

func (e *Expander) eval(expr string) (string, bool) {
	if e.vm == nil {
		e.vm = goja.New()
	}
	val, err := e.vm.RunString("'use strict';(" + expr + ")")
	if err != nil {
		return "", false
	}
	return formatNumber(val.Export())
}

func formatNumber(v any) (string, bool) {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", false
		}
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return strconv.FormatInt(int64(n), 10), true
		}
		return strconv.FormatFloat(n, 'g', -1, 64), true
	default:
		return fmt.Sprint(v), v != nil
	}
}

func isArithmetic(s string) bool {
	return arithmeticRe.MatchString(s) && operatorRe.MatchString(s) && !leadingZeroRe.MatchString(s)
}

// matchingBrace returns the index of the '}' closing the '{' at open, or -1.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
