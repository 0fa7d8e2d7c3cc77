package dataset

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/spatial"
)

// CentimetersPerMeter converts the geometry stored in MAT-files
const CentimetersPerMeter = 100.0

// Level 5 MAT-file element types
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// Level 5 MAT-file array classes
const (
	mxSTRUCT = 2
	mxDOUBLE = 6
	mxUINT64 = 15
)

const matHeaderSize = 128

// matArray is a decoded MAT-file variable. Numeric values are column-major;
// struct arrays keep the fields of their first element.
type matArray struct {
	Name   string
	Class  uint8
	Dims   []int
	Values []float64
	Fields map[string]*matArray
}

func (a *matArray) scalar(field string) (float64, bool) {
	f := a.Fields[field]
	if f == nil || len(f.Values) == 0 {
		return 0, false
	}
	return f.Values[0], true
}

type matReader struct {
	order binary.ByteOrder
}

// readMAT decodes the numeric and struct variables of a level 5 MAT-file.
// Variables of other classes are returned without values.
func readMAT(data []byte) (map[string]*matArray, error) {
	if len(data) < matHeaderSize {
		return nil, fmt.Errorf("not a MAT-file: %d bytes", len(data))
	}
	m := matReader{}
	switch string(data[126:128]) {
	case "IM":
		m.order = binary.LittleEndian
	case "MI":
		m.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a level 5 MAT-file")
	}

	vars := make(map[string]*matArray)
	rest := data[matHeaderSize:]
	for len(rest) >= 8 {
		typ, body, next, err := m.element(rest)
		if err != nil {
			return nil, err
		}
		rest = next

		if typ == miCOMPRESSED {
			if body, err = inflate(body); err != nil {
				return nil, err
			}
			if typ, body, _, err = m.element(body); err != nil {
				return nil, err
			}
		}
		if typ != miMATRIX {
			continue
		}
		arr, err := m.matrix(body)
		if err != nil {
			return nil, err
		}
		vars[arr.Name] = arr
	}
	return vars, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed variable: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate variable: %w", err)
	}
	return out, nil
}

// element splits one data element off buf. Small elements pack the type and
// size into the first four bytes; compressed elements carry no padding.
func (m matReader) element(buf []byte) (typ uint32, body, rest []byte, err error) {
	if len(buf) < 8 {
		return 0, nil, nil, fmt.Errorf("truncated MAT-file element")
	}
	first := m.order.Uint32(buf)
	if first>>16 != 0 {
		n := int(first >> 16)
		if n > 4 {
			return 0, nil, nil, fmt.Errorf("invalid small MAT-file element of %d bytes", n)
		}
		return first & 0xffff, buf[4 : 4+n], buf[8:], nil
	}

	n := int(m.order.Uint32(buf[4:8]))
	if n > len(buf)-8 {
		return 0, nil, nil, fmt.Errorf("truncated MAT-file element: %d of %d bytes", len(buf)-8, n)
	}
	end := 8 + n
	if first != miCOMPRESSED {
		end = 8 + (n+7)&^7
	}
	if end > len(buf) {
		end = len(buf)
	}
	return first, buf[8 : 8+n], buf[end:], nil
}

func (m matReader) matrix(body []byte) (*matArray, error) {
	arr := &matArray{}
	if len(body) == 0 {
		return arr, nil
	}

	_, flags, rest, err := m.element(body)
	if err != nil {
		return nil, err
	}
	if len(flags) < 4 {
		return nil, fmt.Errorf("invalid MAT-file array flags")
	}
	arr.Class = uint8(m.order.Uint32(flags) & 0xff)

	_, dims, rest, err := m.element(rest)
	if err != nil {
		return nil, err
	}
	for i := 0; i+4 <= len(dims); i += 4 {
		arr.Dims = append(arr.Dims, int(int32(m.order.Uint32(dims[i:]))))
	}

	_, name, rest, err := m.element(rest)
	if err != nil {
		return nil, err
	}
	arr.Name = string(name)

	switch {
	case arr.Class >= mxDOUBLE && arr.Class <= mxUINT64:
		if len(rest) < 8 {
			return arr, nil
		}
		typ, values, _, err := m.element(rest)
		if err != nil {
			return nil, err
		}
		if arr.Values, err = m.numbers(typ, values); err != nil {
			return nil, fmt.Errorf("variable %q: %w", arr.Name, err)
		}
	case arr.Class == mxSTRUCT:
		if err := m.structFields(arr, rest); err != nil {
			return nil, fmt.Errorf("variable %q: %w", arr.Name, err)
		}
	}
	return arr, nil
}

func (m matReader) structFields(arr *matArray, rest []byte) error {
	_, size, rest, err := m.element(rest)
	if err != nil {
		return err
	}
	if len(size) < 4 {
		return fmt.Errorf("invalid field name length")
	}
	nameLen := int(m.order.Uint32(size))

	_, names, rest, err := m.element(rest)
	if err != nil {
		return err
	}
	if nameLen <= 0 || len(names)%nameLen != 0 {
		return fmt.Errorf("invalid field names")
	}
	var fields []string
	for i := 0; i < len(names); i += nameLen {
		fields = append(fields, strings.TrimRight(string(names[i:i+nameLen]), "\x00"))
	}

	count := 1
	for _, d := range arr.Dims {
		count *= d
	}
	if count == 0 {
		return nil
	}

	// elements are stored one after another, each holding all fields in order
	arr.Fields = make(map[string]*matArray, len(fields))
	for _, f := range fields {
		typ, body, next, err := m.element(rest)
		if err != nil {
			return err
		}
		if typ != miMATRIX {
			return fmt.Errorf("field %s: unexpected element type %d", f, typ)
		}
		child, err := m.matrix(body)
		if err != nil {
			return fmt.Errorf("field %s: %w", f, err)
		}
		child.Name = f
		arr.Fields[f] = child
		rest = next
	}
	return nil
}

func (m matReader) numbers(typ uint32, b []byte) ([]float64, error) {
	var size int
	var decode func([]byte) float64
	switch typ {
	case miINT8:
		size, decode = 1, func(b []byte) float64 { return float64(int8(b[0])) }
	case miUINT8:
		size, decode = 1, func(b []byte) float64 { return float64(b[0]) }
	case miINT16:
		size, decode = 2, func(b []byte) float64 { return float64(int16(m.order.Uint16(b))) }
	case miUINT16:
		size, decode = 2, func(b []byte) float64 { return float64(m.order.Uint16(b)) }
	case miINT32:
		size, decode = 4, func(b []byte) float64 { return float64(int32(m.order.Uint32(b))) }
	case miUINT32:
		size, decode = 4, func(b []byte) float64 { return float64(m.order.Uint32(b)) }
	case miSINGLE:
		size, decode = 4, func(b []byte) float64 { return float64(math.Float32frombits(m.order.Uint32(b))) }
	case miDOUBLE:
		size, decode = 8, func(b []byte) float64 { return math.Float64frombits(m.order.Uint64(b)) }
	case miINT64:
		size, decode = 8, func(b []byte) float64 { return float64(int64(m.order.Uint64(b))) }
	case miUINT64:
		size, decode = 8, func(b []byte) float64 { return float64(m.order.Uint64(b)) }
	default:
		return nil, fmt.Errorf("unsupported numeric type %d", typ)
	}

	out := make([]float64, len(b)/size)
	for i := range out {
		out[i] = decode(b[i*size:])
	}
	return out, nil
}

// MatParser reads the ETdata struct of the Lund2013 MAT-files. ETdata.pos
// holds one row per sample with the timestamp in µs in column 1, the right
// eye position in columns 4-5 and the label code in column 6; the geometry
// (viewDist, screenDim) is given in meters.
type MatParser struct {
	Defaults RecordingInfo
}

// Parse reads a full recording with the same missing-sample and timestamp
// rules as LabelledParser
func (p MatParser) Parse(r io.Reader) (*LabelledRecording, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	vars, err := readMAT(data)
	if err != nil {
		return nil, err
	}
	et := vars["ETdata"]
	if et == nil || et.Fields == nil {
		return nil, fmt.Errorf("MAT-file has no ETdata struct")
	}

	rec := &LabelledRecording{RecordingInfo: p.Defaults}
	if v, ok := et.scalar("sampFreq"); ok && v > 0 {
		rec.SamplingRateHz = v
	}
	if v, ok := et.scalar("viewDist"); ok && v > 0 {
		rec.ViewerDistanceCm = v * CentimetersPerMeter
	}
	dim, res := et.Fields["screenDim"], et.Fields["screenRes"]
	if dim != nil && res != nil && len(dim.Values) >= 2 && len(res.Values) >= 2 {
		rec.PixelSizeCm = spatial.PixelSizeFor(dim.Values[0]*CentimetersPerMeter, dim.Values[1]*CentimetersPerMeter,
			int(res.Values[0]), int(res.Values[1]))
	}

	pos := et.Fields["pos"]
	if pos == nil || len(pos.Dims) < 2 || pos.Dims[1] < 6 {
		return nil, fmt.Errorf("ETdata.pos must have at least 6 columns")
	}
	rows := pos.Dims[0]
	if len(pos.Values) < rows*6 {
		return nil, fmt.Errorf("ETdata.pos holds %d values, expected %d", len(pos.Values), rows*pos.Dims[1])
	}
	column := func(c int) []float64 { return pos.Values[c*rows : (c+1)*rows] }
	rawTimes, xs, ys, codes := column(0), column(3), column(4), column(5)

	missingTime := false
	for i := 0; i < rows; i++ {
		x, y := xs[i], ys[i]
		if x == 0 && y == 0 {
			x, y = math.NaN(), math.NaN()
		}
		if math.IsNaN(rawTimes[i]) {
			missingTime = true
		}
		label := models.LabelUndefined
		if !math.IsNaN(codes[i]) {
			label, _ = models.LabelFromCode(int(codes[i]), true)
		}
		rec.Samples = append(rec.Samples, models.GazeSample{Index: i, X: x, Y: y})
		rec.Labels = append(rec.Labels, label)
	}

	times, err := timestampsMs(rawTimes, missingTime, rec.SamplingRateHz)
	if err != nil {
		return nil, err
	}
	for i := range rec.Samples {
		rec.Samples[i].TimeMs = times[i]
	}
	return rec, nil
}
