package dataset

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var le = binary.LittleEndian

func writeElement(buf *bytes.Buffer, typ uint32, data []byte) {
	binary.Write(buf, le, typ)
	binary.Write(buf, le, uint32(len(data)))
	buf.Write(data)
	if pad := (8 - len(data)%8) % 8; pad > 0 {
		buf.Write(make([]byte, pad))
	}
}

func matMatrix(name string, class uint32, dims []int32, content func(*bytes.Buffer)) []byte {
	var body bytes.Buffer
	flags := make([]byte, 8)
	le.PutUint32(flags, class)
	writeElement(&body, miUINT32, flags)

	d := make([]byte, 4*len(dims))
	for i, v := range dims {
		le.PutUint32(d[4*i:], uint32(v))
	}
	writeElement(&body, miINT32, d)
	writeElement(&body, miINT8, []byte(name))
	content(&body)

	var out bytes.Buffer
	writeElement(&out, miMATRIX, body.Bytes())
	return out.Bytes()
}

// matDoubles stores column-major values as a double matrix
func matDoubles(name string, rows, cols int, values ...float64) []byte {
	return matMatrix(name, mxDOUBLE, []int32{int32(rows), int32(cols)}, func(b *bytes.Buffer) {
		data := make([]byte, 8*len(values))
		for i, v := range values {
			le.PutUint64(data[8*i:], math.Float64bits(v))
		}
		writeElement(b, miDOUBLE, data)
	})
}

// matUint16 stores a double class matrix with compacted uint16 data, as MATLAB does
func matUint16(name string, values ...uint16) []byte {
	return matMatrix(name, mxDOUBLE, []int32{1, int32(len(values))}, func(b *bytes.Buffer) {
		data := make([]byte, 2*len(values))
		for i, v := range values {
			le.PutUint16(data[2*i:], v)
		}
		writeElement(b, miUINT16, data)
	})
}

func matStruct(name string, fields []string, children ...[]byte) []byte {
	const nameLen = 32
	return matMatrix(name, mxSTRUCT, []int32{1, 1}, func(b *bytes.Buffer) {
		// field name length as a small element
		binary.Write(b, le, uint32(4<<16|miINT32))
		binary.Write(b, le, int32(nameLen))
		names := make([]byte, nameLen*len(fields))
		for i, f := range fields {
			copy(names[i*nameLen:], f)
		}
		writeElement(b, miINT8, names)
		for _, c := range children {
			b.Write(c)
		}
	})
}

func matFile(compress bool, vars ...[]byte) []byte {
	var buf bytes.Buffer
	header := bytes.Repeat([]byte(" "), 116)
	copy(header, "MATLAB 5.0 MAT-file, written by tests")
	buf.Write(header)
	buf.Write(make([]byte, 8))
	binary.Write(&buf, le, uint16(0x0100))
	buf.WriteString("IM")

	for _, v := range vars {
		if !compress {
			buf.Write(v)
			continue
		}
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		zw.Write(v)
		zw.Close()
		binary.Write(&buf, le, uint32(miCOMPRESSED))
		binary.Write(&buf, le, uint32(z.Len()))
		buf.Write(z.Bytes())
	}
	return buf.Bytes()
}

// etData builds a Lund2013 style recording of three samples: columns are
// time_us, two unused, x, y and label code
func etData(compress bool, times []float64, labels ...float64) []byte {
	pos := append([]float64{}, times...)
	pos = append(pos, 0, 0, 0) // unused
	pos = append(pos, 0, 0, 0) // unused
	pos = append(pos, 10, 0, 30)
	pos = append(pos, 20, 0, 40)
	pos = append(pos, labels...)

	return matFile(compress,
		matDoubles("other", 1, 1, 42),
		matStruct("ETdata",
			[]string{"pos", "sampFreq", "viewDist", "screenDim", "screenRes"},
			matDoubles("", 3, 6, pos...),
			matDoubles("", 1, 1, 500),
			matDoubles("", 1, 1, 0.67),
			matDoubles("", 1, 2, 0.38, 0.30),
			matUint16("", 1024, 768),
		),
	)
}

func TestMatParser(t *testing.T) {
	for _, compress := range []bool{false, true} {
		rec, err := MatParser{}.Parse(bytes.NewReader(etData(compress, []float64{1000, 3000, 5000}, 1, 1, 2)))
		require.NoError(t, err, "compressed=%v", compress)

		assert.Equal(t, 500.0, rec.SamplingRateHz)
		assert.InDelta(t, 67.0, rec.ViewerDistanceCm, 1e-9)
		assert.InDelta(t, 0.0378, rec.PixelSizeCm, 1e-4)

		require.Len(t, rec.Samples, 3)
		assert.Equal(t, 10.0, rec.Samples[0].X)
		assert.Equal(t, 20.0, rec.Samples[0].Y)
		assert.True(t, math.IsNaN(rec.Samples[1].X), "(0, 0) is a missing sample")
		assert.Equal(t, []float64{0, 2, 4}, []float64{rec.Samples[0].TimeMs, rec.Samples[1].TimeMs, rec.Samples[2].TimeMs})
		assert.Equal(t, []models.Label{models.LabelFixation, models.LabelFixation, models.LabelSaccade}, rec.Labels)
	}
}

func TestMatParserSynthesisedTimesAndUnknownLabels(t *testing.T) {
	nan := math.NaN()
	rec, err := MatParser{}.Parse(bytes.NewReader(etData(true, []float64{nan, nan, nan}, 1, 9, nan)))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 4}, []float64{rec.Samples[0].TimeMs, rec.Samples[1].TimeMs, rec.Samples[2].TimeMs})
	assert.Equal(t, []models.Label{models.LabelFixation, models.LabelUndefined, models.LabelUndefined}, rec.Labels)
}

func TestMatParserErrors(t *testing.T) {
	_, err := MatParser{}.Parse(strings.NewReader("0 1 1 1\n"))
	assert.Error(t, err)

	_, err = MatParser{}.Parse(bytes.NewReader(matFile(false, matDoubles("pos", 1, 1, 1))))
	assert.ErrorContains(t, err, "ETdata")

	narrow := matFile(false, matStruct("ETdata", []string{"pos"}, matDoubles("", 1, 3, 1, 2, 3)))
	_, err = MatParser{}.Parse(bytes.NewReader(narrow))
	assert.ErrorContains(t, err, "6 columns")

	truncated := etData(false, []float64{1, 2, 3}, 1, 1, 1)
	_, err = MatParser{}.Parse(bytes.NewReader(truncated[:len(truncated)-40]))
	assert.Error(t, err)
}

func TestParseArchiveMatRecordings(t *testing.T) {
	times := []float64{0, 2000, 4000}
	data := buildArchive(t, map[string]string{
		"root/raw/UH29_img_Europe_labelled_RA.mat":     string(etData(true, times, 1, 1, 2)),
		"root/raw/UH29_img_Europe_labelled_MN.mat":     string(etData(true, times, 2, 2, 2)),
		"root/fix/UH29_img_Europe_labelled_FIX_MN.mat": string(etData(true, times, 1, 2, 2)),
		"root/raw/UH21_trial1_labelled_RA.mat":         string(etData(false, times, 1, 2, 1)),
		"root/raw/UH21_img_Rome_labelled_RA.txt":       "0 1 1 1\n",
		"root/other/UH30_img_Europe_labelled_RA.mat":   string(etData(true, times, 1, 1, 1)),
	})
	src := Source{
		Prefix:       "root/raw/",
		Extension:    ".mat",
		Exclude:      []string{"UH29_img_Europe_labelled_MN.mat"},
		Replacements: []string{"root/fix/UH29_img_Europe_labelled_FIX_MN.mat"},
	}

	trials, err := ParseArchive(data, src)
	require.NoError(t, err)
	require.Len(t, trials, 2)

	dot, europe := trials[0], trials[1]
	assert.Equal(t, "UH21/moving dot/", dot.Key())
	assert.Equal(t, "UH29/img/Europe", europe.Key())
	assert.InDelta(t, 67.0, europe.ViewerDistanceCm, 1e-9)
	assert.Equal(t, []models.Label{models.LabelFixation, models.LabelSaccade, models.LabelSaccade}, europe.Raters["MN"], "corrected file wins")
	assert.Equal(t, []models.Label{models.LabelFixation, models.LabelFixation, models.LabelSaccade}, europe.Raters["RA"])
}

func TestParseArchiveWithoutMatchingRecordings(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"root/raw/UH29_img_Europe_labelled_RA.mat": string(etData(true, []float64{0, 1, 2}, 1, 1, 1)),
	})
	_, err := ParseArchive(data, Source{Prefix: "root/raw/", Extension: ".txt"})
	assert.ErrorContains(t, err, "no \".txt\" recordings")
}

func TestParserFor(t *testing.T) {
	assert.IsType(t, MatParser{}, ParserFor("a/UH29_img_Europe_labelled_RA.MAT", RecordingInfo{}))
	assert.IsType(t, LabelledParser{}, ParserFor("UH29_img_Europe_labelled_RA.txt", RecordingInfo{}))
}
