package supervisor

import (
	"bytes"
	"strings"
	"sync"
)

// maxPendingLines caps undrained output; the oldest lines are dropped first.
const maxPendingLines = 4096

// lineBuffer collects a command's combined output as lines.
type lineBuffer struct {
	mu      sync.Mutex
	partial []byte
	lines   []string
	dropped int
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.partial = append(b.partial, p...)
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		b.push(strings.TrimRight(string(b.partial[:i]), "\r"))
		b.partial = b.partial[i+1:]
	}
	return len(p), nil
}

func (b *lineBuffer) push(line string) {
	if len(b.lines) >= maxPendingLines {
		b.lines = b.lines[1:]
		b.dropped++
	}
	b.lines = append(b.lines, line)
}

// flush turns a trailing unterminated line into a line.
func (b *lineBuffer) flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.partial) > 0 {
		b.push(strings.TrimRight(string(b.partial), "\r"))
		b.partial = nil
	}
}

// drain hands over pending lines and the count of lines dropped since the last
// drain.
func (b *lineBuffer) drain() ([]string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines, dropped := b.lines, b.dropped
	b.lines, b.dropped = nil, 0
	return lines, dropped
}
