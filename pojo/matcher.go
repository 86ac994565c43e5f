package pojo

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/syssam/rowmap"
)

// ColumnNameMatcher decides whether a column name matches the name expected
// for a property, and whether it falls under a prefix.
type ColumnNameMatcher interface {
	Matches(column, expected string) bool
	StartsWith(column, prefix string) bool
}

// Fold returns the Unicode case folding of s.
func Fold(s string) string {
	// A Caser holds state and must not be shared between goroutines.
	return cases.Fold().String(s)
}

type caseInsensitive struct{}

// CaseInsensitive matches names equal under Unicode case folding.
func CaseInsensitive() ColumnNameMatcher { return caseInsensitive{} }

func (caseInsensitive) Matches(column, expected string) bool {
	return Fold(column) == Fold(expected)
}

func (caseInsensitive) StartsWith(column, prefix string) bool {
	return strings.HasPrefix(Fold(column), Fold(prefix))
}

func (caseInsensitive) String() string { return "case_insensitive" }

type snakeCase struct{}

// SnakeCase matches names equal under case folding once underscores are
// removed, so first_name matches firstName.
func SnakeCase() ColumnNameMatcher { return snakeCase{} }

func (snakeCase) Matches(column, expected string) bool {
	return Fold(unsnake(column)) == Fold(unsnake(expected))
}

func (snakeCase) StartsWith(column, prefix string) bool {
	return strings.HasPrefix(Fold(unsnake(column)), Fold(unsnake(prefix)))
}

func (snakeCase) String() string { return "snake_case" }

func unsnake(s string) string {
	return strings.ReplaceAll(s, "_", "")
}

// DefaultMatchers returns the default matcher chain.
func DefaultMatchers() []ColumnNameMatcher {
	return []ColumnNameMatcher{CaseInsensitive(), SnakeCase()}
}

// findColumnIndex returns the index of the single column matching expected
// under the first matcher that accepts it, or -1 when none does.
func findColumnIndex(prop *Property, expected string, columns []string, matchers []ColumnNameMatcher) (int, error) {
	found := -1
	for i, column := range columns {
		for _, m := range matchers {
			if !m.Matches(column, expected) {
				continue
			}
			if found >= 0 {
				return -1, &rowmap.AmbiguousColumnError{
					Property: prop.Name,
					Expected: expected,
					Columns:  []string{columns[found], column},
				}
			}
			found = i
			break
		}
	}
	return found, nil
}

func anyColumnStartsWith(columns []string, prefix string, matchers []ColumnNameMatcher) bool {
	for _, column := range columns {
		for _, m := range matchers {
			if m.StartsWith(column, prefix) {
				return true
			}
		}
	}
	return false
}
