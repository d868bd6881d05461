// Package pdf serializes page plans into the binary PDF container:
// objects, content streams, embedded fonts, cross-reference table and
// trailer. Output is deterministic for identical inputs.
package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
)

// Writer accumulates numbered indirect objects and renders the
// cross-reference table and trailer.
type Writer struct {
	buf     bytes.Buffer
	offsets map[int]int
	nextNum int
}

func NewWriter() *Writer {
	w := &Writer{offsets: make(map[int]int), nextNum: 1}
	// binary comment line marks the file as non-ASCII per convention
	w.buf.WriteString("%PDF-1.5\n%\xe2\xe3\xcf\xd3\n")
	return w
}

// Reserve allocates an object number to be written later, allowing
// forward references.
func (w *Writer) Reserve() int {
	n := w.nextNum
	w.nextNum++
	return n
}

// WriteObject emits a previously reserved object.
func (w *Writer) WriteObject(num int, body string) {
	w.offsets[num] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

// AddObject allocates and writes an object in one step.
func (w *Writer) AddObject(body string) int {
	n := w.Reserve()
	w.WriteObject(n, body)
	return n
}

// AddStream writes a stream object; extra holds additional dictionary
// entries (without << >>). Data is Flate-compressed unless compress is
// false.
func (w *Writer) AddStream(extra string, data []byte, compress bool) int {
	filter := ""
	if compress {
		var zb bytes.Buffer
		zw := zlib.NewWriter(&zb)
		if _, err := zw.Write(data); err == nil && zw.Close() == nil {
			data = zb.Bytes()
			filter = " /Filter /FlateDecode"
		}
	}
	n := w.Reserve()
	w.offsets[n] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< /Length %d%s%s >>\nstream\n", n, len(data), filter, extra)
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
	return n
}

// Finish writes the xref table and trailer and returns the document
// bytes. Every reserved object must have been written.
func (w *Writer) Finish(rootNum, infoNum int) ([]byte, error) {
	nums := make([]int, 0, len(w.offsets))
	for n := range w.offsets {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	if len(nums) != w.nextNum-1 {
		return nil, fmt.Errorf("pdf: %d objects reserved, %d written", w.nextNum-1, len(nums))
	}

	start := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", w.nextNum)
	w.buf.WriteString("0000000000 65535 f \n")
	for _, n := range nums {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[n])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d 0 R", w.nextNum, rootNum)
	if infoNum != 0 {
		fmt.Fprintf(&w.buf, " /Info %d 0 R", infoNum)
	}
	fmt.Fprintf(&w.buf, " >>\nstartxref\n%d\n%%%%EOF\n", start)
	return w.buf.Bytes(), nil
}

// escapeString escapes a literal PDF string.
func escapeString(s string) string {
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
