package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines and no error.
func Read(fsys afero.Fs, path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is the readable part of one slog text line.
type Entry struct {
	Level   string
	Message string
	Attrs   string
}

// Parse splits a line written by slog's text handler. Lines in any other shape
// come back whole in Message with an empty Level.
func Parse(line string) Entry {
	rest := line
	if strings.HasPrefix(rest, "time=") {
		if i := strings.IndexByte(rest, ' '); i >= 0 {
			rest = rest[i+1:]
		}
	}
	if !strings.HasPrefix(rest, "level=") {
		return Entry{Message: line}
	}
	rest = strings.TrimPrefix(rest, "level=")
	level, rest, _ := strings.Cut(rest, " ")

	if !strings.HasPrefix(rest, "msg=") {
		return Entry{Level: level, Message: rest}
	}
	rest = strings.TrimPrefix(rest, "msg=")

	var msg string
	if strings.HasPrefix(rest, `"`) {
		end := closingQuote(rest)
		msg = strings.ReplaceAll(rest[1:end], `\"`, `"`)
		rest = strings.TrimSpace(rest[min(end+1, len(rest)):])
	} else {
		msg, rest, _ = strings.Cut(rest, " ")
	}
	return Entry{Level: level, Message: msg, Attrs: rest}
}

// closingQuote returns the index of the quote ending the string opened at
// s[0], or len(s) when it is unterminated.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return len(s)
}
