package jsvalue

import "fmt"

// Kind is the type tag of a tagged value.
type Kind int32

const (
	KindEmpty Kind = iota
	KindNull
	KindBoolean
	KindInteger
	KindIndex
	KindNumber
	KindString
	KindDate
	KindArray
	KindDict
	KindWrapped
	KindFunction
	KindManaged
	KindError
	KindManagedError
	KindUnknownError
)

var kindNames = [...]string{
	KindEmpty:        "Empty",
	KindNull:         "Null",
	KindBoolean:      "Boolean",
	KindInteger:      "Integer",
	KindIndex:        "Index",
	KindNumber:       "Number",
	KindString:       "String",
	KindDate:         "Date",
	KindArray:        "Array",
	KindDict:         "Dict",
	KindWrapped:      "Wrapped",
	KindFunction:     "Function",
	KindManaged:      "Managed",
	KindError:        "Error",
	KindManagedError: "ManagedError",
	KindUnknownError: "UnknownError",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int32(k))
}

// IsError reports whether k is one of the error kinds.
func (k Kind) IsError() bool {
	return k == KindError || k == KindManagedError || k == KindUnknownError
}
