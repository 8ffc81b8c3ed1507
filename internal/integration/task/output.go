package task

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"
)

// OutputStream identifies the source stream.
type OutputStream int

const (
	// OutputStreamStdout is standard output.
	OutputStreamStdout OutputStream = iota
	// OutputStreamStderr is standard error.
	OutputStreamStderr
)

// String returns the stream name.
func (s OutputStream) String() string {
	switch s {
	case OutputStreamStdout:
		return "stdout"
	case OutputStreamStderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// OutputLine is a single line of tool output.
type OutputLine struct {
	// Content is the line without its newline.
	Content string

	// Stream identifies stdout or stderr.
	Stream OutputStream

	// Timestamp is when the line was received.
	Timestamp time.Time

	// LineNumber is the 1-based arrival order across both streams.
	LineNumber int
}

// OutputProcessor splits tool output into lines and keeps them.
type OutputProcessor struct {
	mu         sync.RWMutex
	lines      []OutputLine
	bufferSize int
}

// NewOutputProcessor creates a processor accepting lines up to
// bufferSize bytes.
func NewOutputProcessor(bufferSize int) *OutputProcessor {
	if bufferSize <= 0 {
		bufferSize = 64 * 1024
	}
	return &OutputProcessor{
		lines:      make([]OutputLine, 0, 64),
		bufferSize: bufferSize,
	}
}

// Process reads r line by line, storing each line and passing it to
// callback. It returns the scanner error, if any.
func (p *OutputProcessor) Process(r io.Reader, stream OutputStream, callback func(OutputLine)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(4096, p.bufferSize)), p.bufferSize)

	for scanner.Scan() {
		p.mu.Lock()
		line := OutputLine{
			Content:    scanner.Text(),
			Stream:     stream,
			Timestamp:  time.Now(),
			LineNumber: len(p.lines) + 1,
		}
		p.lines = append(p.lines, line)
		p.mu.Unlock()

		if callback != nil {
			callback(line)
		}
	}
	return scanner.Err()
}

// Lines returns all captured lines.
func (p *OutputProcessor) Lines() []OutputLine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	result := make([]OutputLine, len(p.lines))
	copy(result, p.lines)
	return result
}

// StreamLines returns the lines of one stream.
func (p *OutputProcessor) StreamLines(stream OutputStream) []OutputLine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var result []OutputLine
	for _, line := range p.lines {
		if line.Stream == stream {
			result = append(result, line)
		}
	}
	return result
}

// LineCount returns the number of lines processed.
func (p *OutputProcessor) LineCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.lines)
}

// Content returns all lines joined with newlines.
func (p *OutputProcessor) Content() string {
	return joinLines(p.Lines())
}

// StreamContent returns the lines of one stream joined with newlines.
func (p *OutputProcessor) StreamContent(stream OutputStream) string {
	return joinLines(p.StreamLines(stream))
}

func joinLines(lines []OutputLine) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line.Content)
	}
	return b.String()
}
