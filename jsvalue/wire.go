package jsvalue

import (
	"encoding/binary"
	"math"
	"strconv"
	"sync"

	"github.com/wippyai/js-bridge/errors"
	"github.com/wippyai/js-bridge/resource"
)

const (
	// SlotSize is the size of one encoded value: kind, length, payload.
	SlotSize = 16

	// error record: line, column, then resource/message/constructor/exception slots
	errorRecordSize = 8 + 4*SlotSize

	maxDecodeDepth = 512

	wireAlign = 8
)

// Pool limits to prevent memory bloat
const (
	encPoolInitCap = 256
	encPoolMaxCap  = 64 << 10
)

var encoderPool = sync.Pool{
	New: func() any {
		return &encoder{buf: make([]byte, 0, encPoolInitCap)}
	},
}

type encoder struct {
	buf []byte
}

func (e *encoder) release() {
	if cap(e.buf) > encPoolMaxCap {
		return
	}
	e.buf = e.buf[:0]
	encoderPool.Put(e)
}

// alloc reserves n zeroed bytes at an aligned offset.
func (e *encoder) alloc(n int) uint32 {
	for len(e.buf)%wireAlign != 0 {
		e.buf = append(e.buf, 0)
	}
	off := len(e.buf)
	e.buf = append(e.buf, make([]byte, n)...)
	return uint32(off)
}

func (e *encoder) putHeader(at uint32, k Kind, length int32) {
	binary.LittleEndian.PutUint32(e.buf[at:], uint32(k))
	binary.LittleEndian.PutUint32(e.buf[at+4:], uint32(length))
}

func (e *encoder) putPayload(at uint32, p uint64) {
	binary.LittleEndian.PutUint64(e.buf[at+8:], p)
}

func (e *encoder) putUnits(units []uint16) uint32 {
	off := e.alloc(2 * len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(e.buf[int(off)+2*i:], u)
	}
	return off
}

func (e *encoder) encodeSlots(vs []Value, path []string) (uint32, error) {
	off := e.alloc(SlotSize * len(vs))
	for i, v := range vs {
		if err := e.encode(off+uint32(i*SlotSize), v, append(path, strconv.Itoa(i))); err != nil {
			return 0, err
		}
	}
	return off, nil
}

// encode writes v into the slot at offset at.
func (e *encoder) encode(at uint32, v Value, path []string) error {
	v = OrEmpty(v)
	e.putHeader(at, v.Kind(), v.Length())

	switch x := v.(type) {
	case Empty, Null, Managed, ManagedError:
	case Bool:
		if x {
			e.putPayload(at, 1)
		}
	case Integer:
		e.putPayload(at, uint64(uint32(x)))
	case Index:
		e.putPayload(at, uint64(x))
	case Number:
		e.putPayload(at, math.Float64bits(float64(x)))
	case Date:
		e.putPayload(at, math.Float64bits(float64(x)))
	case String:
		off := e.putUnits(x)
		e.putPayload(at, uint64(off))
	case UnknownError:
		units := StringOf(x.Message)
		off := e.putUnits(units)
		e.putHeader(at, KindUnknownError, int32(len(units)))
		e.putPayload(at, uint64(off))
	case Array:
		off, err := e.encodeSlots(x, path)
		if err != nil {
			return err
		}
		e.putPayload(at, uint64(off))
	case Dict:
		off, err := e.encodeSlots(x.Flatten(), path)
		if err != nil {
			return err
		}
		e.putPayload(at, uint64(off))
	case Wrapped:
		e.putPayload(at, uint64(x.Ref.Handle()))
	case Function:
		off := e.alloc(2 * SlotSize)
		e.putHeader(off, KindWrapped, 0)
		e.putPayload(off, uint64(x.Callable.Handle()))
		if x.Receiver != nil {
			e.putHeader(off+SlotSize, KindWrapped, 0)
			e.putPayload(off+SlotSize, uint64(x.Receiver.Handle()))
		} else {
			e.putHeader(off+SlotSize, KindNull, 0)
		}
		e.putPayload(at, uint64(off))
	case *ErrorDetail:
		if x == nil {
			return errors.InvalidData(errors.PhaseEncode, path, "nil error detail")
		}
		off := e.alloc(errorRecordSize)
		binary.LittleEndian.PutUint32(e.buf[off:], uint32(x.Line))
		binary.LittleEndian.PutUint32(e.buf[off+4:], uint32(x.Column))
		fields := [4]Value{x.Resource, x.Message, x.Constructor, x.Exception}
		for i, f := range fields {
			if err := e.encode(off+8+uint32(i*SlotSize), f, path); err != nil {
				return err
			}
		}
		e.putPayload(at, uint64(off))
	default:
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported value type %T", v).
			Build()
	}
	return nil
}

// Marshal flattens v into the slot wire format. The root slot sits at offset
// zero. Refs are written as bare handle numbers and stay owned by v.
func Marshal(v Value) ([]byte, error) {
	e := encoderPool.Get().(*encoder)
	defer e.release()

	root := e.alloc(SlotSize)
	if err := e.encode(root, v, nil); err != nil {
		return nil, err
	}
	out := make([]byte, len(e.buf))
	copy(out, e.buf)
	return out, nil
}

type decoder struct {
	data  []byte
	owner Owner
	// budget is the number of slots left to decode. Marshal writes every
	// value to its own slot, so a valid buffer never needs more than it holds.
	budget int
}

func (d *decoder) check(off uint64, n int, path []string) error {
	if off > uint64(len(d.data)) || uint64(n) > uint64(len(d.data))-off {
		return errors.OutOfBounds(errors.PhaseDecode, path, int(off)+n, len(d.data))
	}
	return nil
}

func (d *decoder) units(off uint64, n int32, path []string) (String, error) {
	if n < 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, path, "negative string length")
	}
	if err := d.check(off, 2*int(n), path); err != nil {
		return nil, err
	}
	s := make(String, n)
	for i := range s {
		s[i] = binary.LittleEndian.Uint16(d.data[off+uint64(2*i):])
	}
	return s, nil
}

func (d *decoder) slots(off uint64, n int, depth int, path []string) ([]Value, error) {
	if n < 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, path, "negative element count")
	}
	if err := d.check(off, n*SlotSize, path); err != nil {
		return nil, err
	}
	out := make([]Value, n)
	for i := range out {
		v, err := d.decode(off+uint64(i*SlotSize), depth+1, append(path, strconv.Itoa(i)))
		if err != nil {
			Dispose(Array(out[:i]))
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *decoder) ref(h uint64) *Ref {
	if h == 0 {
		return nil
	}
	return NewRef(d.owner, resource.Handle(h))
}

func (d *decoder) decode(at uint64, depth int, path []string) (Value, error) {
	if depth > maxDecodeDepth {
		return nil, errors.InvalidData(errors.PhaseDecode, path, "nesting too deep")
	}
	if err := d.check(at, SlotSize, path); err != nil {
		return nil, err
	}
	if d.budget--; d.budget < 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, path, "more values than slots")
	}
	kind := Kind(int32(binary.LittleEndian.Uint32(d.data[at:])))
	length := int32(binary.LittleEndian.Uint32(d.data[at+4:]))
	payload := binary.LittleEndian.Uint64(d.data[at+8:])

	switch kind {
	case KindEmpty:
		return Empty{}, nil
	case KindNull:
		return Null{}, nil
	case KindBoolean:
		return Bool(payload != 0), nil
	case KindInteger:
		return Integer(int32(uint32(payload))), nil
	case KindIndex:
		return Index(uint32(payload)), nil
	case KindNumber:
		return Number(math.Float64frombits(payload)), nil
	case KindDate:
		return Date(math.Float64frombits(payload)), nil
	case KindString:
		return d.units(payload, length, path)
	case KindUnknownError:
		s, err := d.units(payload, length, path)
		if err != nil {
			return nil, err
		}
		return UnknownError{Message: s.String()}, nil
	case KindManaged:
		return Managed(length), nil
	case KindManagedError:
		return ManagedError(length), nil
	case KindWrapped:
		return Wrapped{Ref: d.ref(payload)}, nil
	case KindArray:
		vs, err := d.slots(payload, int(length), depth, path)
		if err != nil {
			return nil, err
		}
		return Array(vs), nil
	case KindDict:
		if length < 0 {
			return nil, errors.InvalidData(errors.PhaseDecode, path, "negative pair count")
		}
		vs, err := d.slots(payload, 2*int(length), depth, path)
		if err != nil {
			return nil, err
		}
		dict := make(Dict, length)
		for i := range dict {
			dict[i] = Pair{Key: vs[2*i], Value: vs[2*i+1]}
		}
		return dict, nil
	case KindFunction:
		vs, err := d.slots(payload, 2, depth, path)
		if err != nil {
			return nil, err
		}
		fn := Function{}
		if w, ok := vs[0].(Wrapped); ok {
			fn.Callable = w.Ref
		} else {
			Dispose(Array(vs))
			return nil, errors.InvalidData(errors.PhaseDecode, path, "function slot 0 is not a handle")
		}
		if w, ok := vs[1].(Wrapped); ok {
			fn.Receiver = w.Ref
		}
		return fn, nil
	case KindError:
		if err := d.check(payload, errorRecordSize, path); err != nil {
			return nil, err
		}
		detail := &ErrorDetail{
			Line:   int32(binary.LittleEndian.Uint32(d.data[payload:])),
			Column: int32(binary.LittleEndian.Uint32(d.data[payload+4:])),
		}
		fields := [4]*Value{&detail.Resource, &detail.Message, &detail.Constructor, &detail.Exception}
		for i, f := range fields {
			v, err := d.decode(payload+8+uint64(i*SlotSize), depth+1, path)
			if err != nil {
				Dispose(detail)
				return nil, err
			}
			*f = v
		}
		return detail, nil
	}
	return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Path(path...).
		Value(int32(kind)).
		Detail("unknown kind %d", int32(kind)).
		Build()
}

// Unmarshal reads a value produced by Marshal. Handles are rebuilt as refs
// against owner, and the caller owns them.
func Unmarshal(data []byte, owner Owner) (Value, error) {
	d := &decoder{data: data, owner: owner, budget: len(data) / SlotSize}
	return d.decode(0, 0, nil)
}
