// ABOUTME: Encoder and decoder for PHP's native serialize() format.
// ABOUTME: Used to talk to the WordPress.org plugin-information API, which speaks nothing else.

package phpserial

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrSyntax is returned for any input that is not well-formed serialized data.
var ErrSyntax = errors.New("phpserial: syntax error")

// Object is a PHP object with properties kept in declaration order.
// An empty Class encodes as stdClass.
type Object struct {
	Class  string
	Fields []Field
}

// Field is a single object property.
type Field struct {
	Name  string
	Value any
}

// Marshal serializes v. Supported inputs are nil, bool, int, int64, float64,
// string, []string, []any, map[string]any, Object and *Object.
// Maps are written with sorted keys so output is deterministic.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("N;")
	case bool:
		if x {
			buf.WriteString("b:1;")
		} else {
			buf.WriteString("b:0;")
		}
	case int:
		fmt.Fprintf(buf, "i:%d;", x)
	case int64:
		fmt.Fprintf(buf, "i:%d;", x)
	case float64:
		buf.WriteString("d:" + strconv.FormatFloat(x, 'g', -1, 64) + ";")
	case string:
		encodeString(buf, x)
	case []string:
		fmt.Fprintf(buf, "a:%d:{", len(x))
		for i, s := range x {
			fmt.Fprintf(buf, "i:%d;", i)
			encodeString(buf, s)
		}
		buf.WriteByte('}')
	case []any:
		fmt.Fprintf(buf, "a:%d:{", len(x))
		for i, item := range x {
			fmt.Fprintf(buf, "i:%d;", i)
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(buf, "a:%d:{", len(x))
		for _, k := range keys {
			encodeString(buf, k)
			if err := encode(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Object:
		return encodeObject(buf, &x)
	case *Object:
		if x == nil {
			buf.WriteString("N;")
			return nil
		}
		return encodeObject(buf, x)
	default:
		return fmt.Errorf("phpserial: unsupported type %T", v)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) {
	fmt.Fprintf(buf, "s:%d:\"%s\";", len(s), s)
}

func encodeObject(buf *bytes.Buffer, o *Object) error {
	class := o.Class
	if class == "" {
		class = "stdClass"
	}
	fmt.Fprintf(buf, "O:%d:\"%s\":%d:{", len(class), class, len(o.Fields))
	for _, f := range o.Fields {
		encodeString(buf, f.Name)
		if err := encode(buf, f.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// Unmarshal decodes serialized data into plain Go values:
// N → nil, b → bool, i → int64, d → float64, s → string,
// and both arrays and objects → map[string]any (integer keys are stringified).
// Trailing whitespace after the value is ignored.
func Unmarshal(data []byte) (any, error) {
	d := &decoder{data: data}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(d.data[d.pos:])) != 0 {
		return nil, d.errorf("trailing data")
	}
	return v, nil
}

// maxDepth bounds array and object nesting.
const maxDepth = 64

type decoder struct {
	data  []byte
	pos   int
	depth int
}

func (d *decoder) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, d.pos, fmt.Sprintf(format, args...))
}

func (d *decoder) expect(b byte) error {
	if d.pos >= len(d.data) {
		return d.errorf("expected %q, got end of input", b)
	}
	if d.data[d.pos] != b {
		return d.errorf("expected %q, got %q", b, d.data[d.pos])
	}
	d.pos++
	return nil
}

// readUntil returns the bytes up to delim and consumes the delimiter.
func (d *decoder) readUntil(delim byte) (string, error) {
	idx := bytes.IndexByte(d.data[d.pos:], delim)
	if idx < 0 {
		return "", d.errorf("missing %q", delim)
	}
	s := string(d.data[d.pos : d.pos+idx])
	d.pos += idx + 1
	return s, nil
}

func (d *decoder) readLength(delim byte) (int, error) {
	s, err := d.readUntil(delim)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, d.errorf("bad length %q", s)
	}
	return n, nil
}

func (d *decoder) value() (any, error) {
	if d.pos >= len(d.data) {
		return nil, d.errorf("unexpected end of input")
	}
	tag := d.data[d.pos]
	d.pos++

	switch tag {
	case 'N':
		if err := d.expect(';'); err != nil {
			return nil, err
		}
		return nil, nil
	case 'b':
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		s, err := d.readUntil(';')
		if err != nil {
			return nil, err
		}
		switch s {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, d.errorf("bad boolean %q", s)
	case 'i':
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		s, err := d.readUntil(';')
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, d.errorf("bad integer %q", s)
		}
		return n, nil
	case 'd':
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		s, err := d.readUntil(';')
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, d.errorf("bad float %q", s)
		}
		return f, nil
	case 's':
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		s, err := d.quoted()
		if err != nil {
			return nil, err
		}
		if err := d.expect(';'); err != nil {
			return nil, err
		}
		return s, nil
	case 'a':
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		return d.members()
	case 'O':
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		if _, err := d.quoted(); err != nil {
			return nil, err
		}
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		return d.members()
	}
	d.pos--
	return nil, d.errorf("unsupported type tag %q", tag)
}

// quoted reads a length-prefixed "..." string; the length counts bytes.
func (d *decoder) quoted() (string, error) {
	n, err := d.readLength(':')
	if err != nil {
		return "", err
	}
	if err := d.expect('"'); err != nil {
		return "", err
	}
	if n > len(d.data)-d.pos {
		return "", d.errorf("string length %d overruns input", n)
	}
	s := string(d.data[d.pos : d.pos+n])
	d.pos += n
	if err := d.expect('"'); err != nil {
		return "", err
	}
	return s, nil
}

// members reads "<n>:{key;value;...}" for arrays and objects.
func (d *decoder) members() (map[string]any, error) {
	n, err := d.readLength(':')
	if err != nil {
		return nil, err
	}
	if err := d.expect('{'); err != nil {
		return nil, err
	}
	if d.depth >= maxDepth {
		return nil, d.errorf("nesting deeper than %d", maxDepth)
	}
	d.depth++
	defer func() { d.depth-- }()

	// Each member takes at least four bytes, so the remaining input bounds the real count.
	out := make(map[string]any, min(n, (len(d.data)-d.pos)/4))
	for i := 0; i < n; i++ {
		k, err := d.value()
		if err != nil {
			return nil, err
		}
		var key string
		switch kk := k.(type) {
		case int64:
			key = strconv.FormatInt(kk, 10)
		case string:
			key = propertyName(kk)
		default:
			return nil, d.errorf("invalid key type %T", k)
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	if err := d.expect('}'); err != nil {
		return nil, err
	}
	return out, nil
}

// propertyName strips the "\x00Class\x00" and "\x00*\x00" prefixes PHP puts on
// private and protected properties.
func propertyName(s string) string {
	if !strings.HasPrefix(s, "\x00") {
		return s
	}
	if idx := strings.IndexByte(s[1:], 0); idx >= 0 {
		return s[idx+2:]
	}
	return s
}
