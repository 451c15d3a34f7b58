package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/wippyai/js-bridge/runtime"
)

func formatValue(v any) string {
	var b strings.Builder
	writeValue(&b, v, 0)
	return b.String()
}

const maxDepth = 4

func writeValue(b *strings.Builder, v any, depth int) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		if depth == 0 {
			b.WriteString(x)
			return
		}
		b.WriteString(strconv.Quote(x))
	case time.Time:
		b.WriteString(x.Format(time.RFC3339Nano))
	case []any:
		if depth >= maxDepth {
			b.WriteString("[...]")
			return
		}
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, e, depth+1)
		}
		b.WriteByte(']')
	case map[string]any:
		if depth >= maxDepth {
			b.WriteString("{...}")
			return
		}
		keys := lo.Keys(x)
		slices.Sort(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			writeValue(b, x[k], depth+1)
		}
		b.WriteByte('}')
	case *runtime.Object:
		keys, err := x.Keys()
		if err != nil {
			b.WriteString("[object]")
			return
		}
		fmt.Fprintf(b, "[object {%s}]", strings.Join(keys, ", "))
	case *runtime.Function:
		if x.Bound() {
			b.WriteString("[bound function]")
		} else {
			b.WriteString("[function]")
		}
	case error:
		b.WriteString(x.Error())
	default:
		fmt.Fprint(b, x)
	}
}
