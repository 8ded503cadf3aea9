package textdoc

import (
	"bytes"
	"strings"
)

// Content is file data split into lines, plus what is needed to write it
// back byte-for-byte.
type Content struct {
	Lines []string
	// CRLF is set when the first line break of the source was "\r\n".
	CRLF bool
	// TrailingNewline is set when the source ended with a line break.
	TrailingNewline bool
}

// Split breaks data into lines without their terminators.
func Split(data []byte) Content {
	if len(data) == 0 {
		return Content{}
	}

	var c Content
	if i := bytes.IndexByte(data, '\n'); i > 0 && data[i-1] == '\r' {
		c.CRLF = true
	}
	text := string(data)
	if strings.HasSuffix(text, "\n") {
		c.TrailingNewline = true
		text = text[:len(text)-1]
	}

	c.Lines = strings.Split(text, "\n")
	for i, line := range c.Lines {
		c.Lines[i] = strings.TrimSuffix(line, "\r")
	}
	return c
}

// Join renders lines using the terminator conventions of c.
func (c Content) Join(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	eol := "\n"
	if c.CRLF {
		eol = "\r\n"
	}

	var b bytes.Buffer
	for i, line := range lines {
		b.WriteString(line)
		if i < len(lines)-1 || c.TrailingNewline {
			b.WriteString(eol)
		}
	}
	return b.Bytes()
}

// Bytes renders c.Lines.
func (c Content) Bytes() []byte {
	return c.Join(c.Lines)
}
