package sim

import (
	"strconv"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	Name() string
}

// NameMustBeValid panics if the name does not follow the naming convention.
// A name is a series of dot-separated elements. Each element may carry
// integer indices in square brackets, e.g. `Hierarchy.L1TLB[3]`.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	for _, token := range strings.Split(name, ".") {
		if err := checkNameToken(token); err != "" {
			panic("Name " + name + " is not valid: " + err)
		}
	}
}

// MakeIndexedName returns a name with an index suffix, e.g. `L1TLB[3]`.
func MakeIndexedName(elem string, index int) string {
	return elem + "[" + strconv.Itoa(index) + "]"
}

func checkNameToken(token string) string {
	elem, rest, hasIndex := strings.Cut(token, "[")
	if elem == "" {
		return "name element must not be empty"
	}

	if strings.ContainsAny(elem, "_\"'- ]") {
		return "name element must not contain special characters"
	}

	if !hasIndex {
		return ""
	}

	for _, idx := range strings.Split(rest, "[") {
		if !strings.HasSuffix(idx, "]") {
			return "name bracket must match"
		}

		if _, err := strconv.Atoi(strings.TrimSuffix(idx, "]")); err != nil {
			return "name index must be integer"
		}
	}

	return ""
}
