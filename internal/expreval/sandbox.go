package expreval

import (
	"fmt"
	"regexp"
	"strings"
)

// charWhitelist matches the closed set of source characters a formula or
// condition expression may use (spec §4.1 "Safety policy").
var charWhitelist = regexp.MustCompile(`^[A-Za-z0-9_ +\-*/().,\[\]]*$`)

// unsafeTokens is the closed set of identifiers an expression may never
// reference (spec §4.1).
var unsafeTokens = []string{"eval", "exec", "import", "require", "process", "fs"}

// CheckSafety applies the expression-evaluator's safety policy to source
// without compiling or running it: out-of-whitelist characters, unsafe
// tokens, and unbalanced parentheses are all rejected (spec §4.1, §4.2
// "formula-expression safety", §8 "Formula sandbox escape"). The error names
// the offending token for an unsafe token; for out-of-whitelist characters
// and unbalanced parentheses it states the rule without naming a character.
func CheckSafety(source string) error {
	for _, tok := range unsafeTokens {
		if containsToken(source, tok) {
			return fmt.Errorf("expression references unsafe token %q", tok)
		}
	}
	if !charWhitelist.MatchString(source) {
		return fmt.Errorf("expression contains characters outside the allowed set")
	}
	if depth := parenDepth(source); depth != 0 {
		return fmt.Errorf("expression has unbalanced parentheses")
	}
	return nil
}

// parenDepth walks the expression tracking paren nesting; a nonzero result,
// or a negative excursion, indicates an imbalance. Returns the final depth
// (0 when balanced), or -1 sentinel handling is left to the caller via the
// returned value directly (any nonzero means unbalanced).
func parenDepth(source string) int {
	depth := 0
	for _, r := range source {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return depth
			}
		}
	}
	return depth
}

// containsToken reports whether source contains tok as a whole identifier
// (not as a substring of a longer identifier). It runs before the whitelist
// check, so source may still contain any character here.
func containsToken(source, tok string) bool {
	idx := 0
	for {
		i := strings.Index(source[idx:], tok)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(tok)
		beforeOK := start == 0 || !isIdentChar(rune(source[start-1]))
		afterOK := end == len(source) || !isIdentChar(rune(source[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isIdentChar(r rune) bool {
	return r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
