package values

import (
	"encoding/binary"
	"fmt"

	"github.com/wudi/loom/hash"
)

// Key is the admissible-as-map-key subset of Value, encoded as an
// opaque comparable string so it can be used directly as a native Go
// map key (Go's map keys must be comparable; a Value with a heap
// pointer or a float is not a sound key on its own). Int, Bool, Char,
// String, Bytes, Tuple/Vec of Key, and type/variant hashes are
// admissible; Float and Function are excluded — floats compare by
// identity-unsafe equality and functions have no structural identity.
type Key string

const (
	tagInt    byte = 'i'
	tagBool   byte = 'b'
	tagChar   byte = 'c'
	tagType   byte = 't'
	tagString byte = 's'
	tagBytes  byte = 'y'
	tagTuple  byte = 'T'
	tagVec    byte = 'V'
)

// NewKey converts a Value into its Key encoding, or reports that the
// value's Kind is not admissible as a map key.
func NewKey(v Value) (Key, error) {
	var buf []byte
	var enc func(Value) error
	enc = func(v Value) error {
		switch v.Kind() {
		case KindInt:
			buf = append(buf, tagInt)
			buf = binary.BigEndian.AppendUint64(buf, uint64(v.AsInt()))
		case KindBool:
			buf = append(buf, tagBool)
			if v.AsBool() {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case KindChar:
			buf = append(buf, tagChar)
			buf = binary.BigEndian.AppendUint32(buf, uint32(v.AsChar()))
		case KindType:
			buf = append(buf, tagType)
			buf = binary.BigEndian.AppendUint64(buf, uint64(v.AsTypeHash()))
		case KindString:
			s := v.AsString()
			buf = append(buf, tagString)
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
			buf = append(buf, s...)
		case KindBytes:
			b := v.AsBytes()
			buf = append(buf, tagBytes)
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
			buf = append(buf, b...)
		case KindTuple:
			elems := v.TupleSlice()
			buf = append(buf, tagTuple)
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(elems)))
			for _, e := range elems {
				if err := enc(e); err != nil {
					return err
				}
			}
		case KindVec:
			elems := v.VecSlice()
			buf = append(buf, tagVec)
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(elems)))
			for _, e := range elems {
				if err := enc(e); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("values: %s is not a valid map key", v.Kind())
		}
		return nil
	}
	if err := enc(v); err != nil {
		return "", err
	}
	return Key(buf), nil
}

// ToValue decodes a Key back into the Value it was built from, used
// when a Map's keys are read back out (iteration, disassembly dumps).
func (k Key) ToValue() (Value, error) {
	v, rest, err := decodeKey([]byte(k))
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, fmt.Errorf("values: trailing bytes after key")
	}
	return v, nil
}

func decodeKey(buf []byte) (Value, []byte, error) {
	if len(buf) == 0 {
		return Value{}, nil, fmt.Errorf("values: truncated key")
	}
	tag, rest := buf[0], buf[1:]
	switch tag {
	case tagInt:
		if len(rest) < 8 {
			return Value{}, nil, fmt.Errorf("values: truncated int key")
		}
		return NewInt(int64(binary.BigEndian.Uint64(rest[:8]))), rest[8:], nil
	case tagBool:
		if len(rest) < 1 {
			return Value{}, nil, fmt.Errorf("values: truncated bool key")
		}
		return NewBool(rest[0] != 0), rest[1:], nil
	case tagChar:
		if len(rest) < 4 {
			return Value{}, nil, fmt.Errorf("values: truncated char key")
		}
		return NewChar(rune(binary.BigEndian.Uint32(rest[:4]))), rest[4:], nil
	case tagType:
		if len(rest) < 8 {
			return Value{}, nil, fmt.Errorf("values: truncated type key")
		}
		return NewType(hash.Hash(binary.BigEndian.Uint64(rest[:8]))), rest[8:], nil
	case tagString:
		if len(rest) < 4 {
			return Value{}, nil, fmt.Errorf("values: truncated string key")
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return Value{}, nil, fmt.Errorf("values: truncated string key body")
		}
		return NewString(string(rest[:n])), rest[n:], nil
	case tagBytes:
		if len(rest) < 4 {
			return Value{}, nil, fmt.Errorf("values: truncated bytes key")
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return Value{}, nil, fmt.Errorf("values: truncated bytes key body")
		}
		cp := make([]byte, n)
		copy(cp, rest[:n])
		return NewBytes(cp), rest[n:], nil
	case tagTuple, tagVec:
		if len(rest) < 4 {
			return Value{}, nil, fmt.Errorf("values: truncated composite key")
		}
		n := binary.BigEndian.Uint32(rest[:4])
		return decodeComposite(tag, n, rest[4:])
	default:
		return Value{}, nil, fmt.Errorf("values: unknown key tag %q", tag)
	}
}

func decodeComposite(tag byte, n uint32, rest []byte) (Value, []byte, error) {
	elems := make([]Value, 0, n)
	for i := uint32(0); i < n; i++ {
		elem, next, err := decodeKey(rest)
		if err != nil {
			return Value{}, nil, err
		}
		elems = append(elems, elem)
		rest = next
	}
	if tag == tagTuple {
		return NewTuple(elems), rest, nil
	}
	return NewVec(elems), rest, nil
}
