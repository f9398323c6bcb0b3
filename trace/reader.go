// Package trace reads virtual address traces, one hexadecimal value per line.
package trace

import (
	"bufio"
	"io"
	"math"
)

// maxHexDigits is the number of significant hex digits a uint64 can hold.
const maxHexDigits = 16

// A Token is the value scanned from one trace line.
type Token struct {
	// Line is the 1-based line number.
	Line int

	// Text is the line without its line terminator.
	Text string

	// Value is the scanned number. Values that do not fit in 64 bits
	// saturate to math.MaxUint64.
	Value uint64

	// Valid is false when the line holds no hexadecimal number.
	Valid bool
}

// MaxLineLength is the number of leading bytes of a line that are kept in
// Token.Text and scanned for a value. The rest of a longer line is skipped.
const MaxLineLength = 64 * 1024

// A Reader scans trace lines.
type Reader struct {
	reader    *bufio.Reader
	line      int
	bytesRead uint64
	err       error
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		reader: bufio.NewReaderSize(r, MaxLineLength),
	}
}

// Next returns the token of the next line. It returns false at the end of
// the input or on a read error; use Err to tell them apart.
func (r *Reader) Next() (Token, bool) {
	if r.err != nil {
		return Token{}, false
	}

	text, ok := r.readLine()
	if !ok {
		return Token{}, false
	}

	r.line++

	value, valid := ParseHex(text)

	return Token{
		Line:  r.line,
		Text:  text,
		Value: value,
		Valid: valid,
	}, true
}

// readLine returns the head of the next line and consumes the whole line.
func (r *Reader) readLine() (string, bool) {
	chunk, err := r.reader.ReadSlice('\n')
	r.bytesRead += uint64(len(chunk))

	if len(chunk) == 0 && err != nil {
		r.setErr(err)
		return "", false
	}

	text := string(trimLineEnd(chunk))

	for err == bufio.ErrBufferFull {
		chunk, err = r.reader.ReadSlice('\n')
		r.bytesRead += uint64(len(chunk))
	}

	r.setErr(err)

	return text, true
}

func (r *Reader) setErr(err error) {
	if err != nil && err != bufio.ErrBufferFull {
		r.err = err
	}
}

func trimLineEnd(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}

	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}

	return b
}

// Err returns the first non-EOF error that was encountered.
func (r *Reader) Err() error {
	if r.err == io.EOF {
		return nil
	}

	return r.err
}

// LinesRead returns the number of lines returned so far.
func (r *Reader) LinesRead() int {
	return r.line
}

// BytesRead returns the number of bytes consumed so far.
func (r *Reader) BytesRead() uint64 {
	return r.bytesRead
}

// ParseHex scans a hexadecimal number the way the %x verb of scanf does:
// leading blanks are skipped, an optional sign and an optional 0x or 0X
// prefix are accepted, and scanning stops at the first character that is
// not a hex digit. A negative number wraps around, as scanf stores it in an
// unsigned integer.
func ParseHex(s string) (uint64, bool) {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	negative := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		negative = s[i] == '-'
		i++
	}

	if i+1 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') &&
		i+2 < len(s) && isHexDigit(s[i+2]) {
		i += 2
	}

	var (
		value       uint64
		digits      int
		significant int
	)

	for ; i < len(s) && isHexDigit(s[i]); i++ {
		digits++

		d := hexValue(s[i])
		if significant == 0 && d == 0 {
			continue
		}

		significant++
		if significant > maxHexDigits {
			value = math.MaxUint64
			continue
		}

		value = value<<4 | d
	}

	if negative && significant <= maxHexDigits {
		value = -value
	}

	return value, digits > 0
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') ||
		('a' <= c && c <= 'f') ||
		('A' <= c && c <= 'F')
}

func hexValue(c byte) uint64 {
	switch {
	case '0' <= c && c <= '9':
		return uint64(c - '0')
	case 'a' <= c && c <= 'f':
		return uint64(c-'a') + 10
	default:
		return uint64(c-'A') + 10
	}
}
