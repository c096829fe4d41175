package runner

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxLineSize is 1MiB, enough for very wide contexts.
	DefaultMaxLineSize = 1 << 20
	// EnvMaxLineSize is the environment variable to override the default
	EnvMaxLineSize = "ARBOR_MAX_LINE_SIZE"
)

var (
	ErrLineTooLarge = errors.New("line exceeds maximum allowed size")
	ErrInvalidUTF8  = errors.New("line contains invalid UTF-8 sequences")
)

// SanitizeLine validates one input line and strips control characters
// outside JSON whitespace. Oversized lines are rejected, never truncated.
func SanitizeLine(line []byte) ([]byte, error) {
	limit := getMaxLineSize()
	if len(line) > limit {
		return nil, fmt.Errorf("%w: size=%d limit=%d", ErrLineTooLarge, len(line), limit)
	}

	if !utf8.Valid(line) {
		return nil, ErrInvalidUTF8
	}

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range string(line) {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return line, nil
	}

	out := make([]byte, 0, len(line))
	for _, r := range string(line) {
		if !unicode.IsControl(r) || isSafeControl(r) {
			out = utf8.AppendRune(out, r)
		}
	}
	return out, nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func getMaxLineSize() int {
	if val := os.Getenv(EnvMaxLineSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxLineSize
}

// readLine reads one '\n'-terminated line without its terminator. Past
// limit bytes the rest of the line is discarded and tooLong is set, so a
// single oversized line does not end the stream.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, rerr := br.ReadLine()
		if rerr != nil {
			return line, tooLong, rerr
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}
