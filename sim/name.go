package sim

import (
	"strconv"
	"strings"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// NameMustBeValid panics if the name does not follow the naming convention.
//
// A name is a dot-separated hierarchy such as "Platform.Writer.FIFO". Each
// element must be non-empty, start with a capital letter, and may carry
// square-bracket indices, as in "Interconnect.Port[2]".
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	for _, token := range strings.Split(name, ".") {
		tokenMustBeValid(name, token)
	}
}

func tokenMustBeValid(name, token string) {
	if token == "" {
		panic("name " + name + " has an empty element")
	}

	if token[0] < 'A' || token[0] > 'Z' {
		panic("name " + name + ": element " + token +
			" must start with a capital letter")
	}

	if strings.ContainsAny(token, "_\"'- ") {
		panic("name " + name + ": element " + token +
			" contains an invalid character")
	}

	elem, rest, hasIndex := strings.Cut(token, "[")
	if strings.ContainsAny(elem, "]") {
		panic("name " + name + ": bracket must match")
	}

	for hasIndex {
		var index string

		index, rest, hasIndex = strings.Cut(rest, "]")
		if !hasIndex {
			panic("name " + name + ": bracket must match")
		}

		if _, err := strconv.Atoi(index); err != nil {
			panic("name " + name + ": index must be an integer")
		}

		if rest == "" {
			return
		}

		if rest[0] != '[' {
			panic("name " + name + ": unexpected text after index")
		}

		rest = rest[1:]
	}
}
