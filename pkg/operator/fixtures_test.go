package operator

import "strings"

type intKey int

func (k intKey) Compare(other intKey) int {
	switch {
	case k < other:
		return -1
	case k > other:
		return 1
	default:
		return 0
	}
}

type strKey string

func (k strKey) Compare(other strKey) int {
	return strings.Compare(string(k), string(other))
}
