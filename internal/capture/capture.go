// Package capture loads log captures from disk or from a device and works
// out what kind of capture each one is.
package capture

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/setevik/droidtriage/internal/kernel"
	"github.com/setevik/droidtriage/internal/logcat"
)

// Kind is the type of a capture.
type Kind string

const (
	KindUnknown   Kind = ""
	KindBugreport Kind = "bugreport"
	KindLogcat    Kind = "logcat"
	KindKernel    Kind = "kernel"
	KindDumpsys   Kind = "dumpsys"
)

// ParseKind maps a user supplied name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindBugreport, KindLogcat, KindKernel, KindDumpsys:
		return k, nil
	case "dmesg", "kmsg", "last_kmsg":
		return KindKernel, nil
	}
	return KindUnknown, fmt.Errorf("unknown capture kind %q", s)
}

// sniffLines is how many non-blank lines Detect looks at.
const sniffLines = 200

// ErrUnknownKind is returned when a capture matches no known format.
var ErrUnknownKind = errors.New("unrecognized capture format")

// Capture is one loaded capture.
type Capture struct {
	Path  string
	Kind  Kind
	Lines []string
}

// ReadLines splits r into lines. Trailing carriage returns are dropped so
// captures pulled on Windows hosts parse the same.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	// Dumpsys can print very long lines; increase buffer to 1MB.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return lines, nil
}

// Open reads the capture at path, gunzipping it when needed, and detects
// its kind.
func Open(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// Read loads a capture from r. Gzip input is detected by its magic bytes.
func Read(r io.Reader) (*Capture, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	lines, err := ReadLines(src)
	if err != nil {
		return nil, err
	}
	kind := Detect(lines)
	if kind == KindUnknown {
		return nil, ErrUnknownKind
	}
	return &Capture{Kind: kind, Lines: lines}, nil
}

// Detect guesses the kind of a capture from its first lines. A dumpstate
// header wins over everything else since a bugreport embeds the others.
func Detect(lines []string) Kind {
	var logcatLines, kernelLines int
	seen := 0
	for _, l := range lines {
		if seen == sniffLines {
			break
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		seen++

		switch {
		case strings.HasPrefix(l, "== dumpstate:"):
			return KindBugreport
		case strings.HasPrefix(l, "DUMP OF SERVICE "):
			return KindDumpsys
		case logcat.Matches(l):
			logcatLines++
		case kernel.Matches(l):
			kernelLines++
		}
	}

	switch {
	case logcatLines == 0 && kernelLines == 0:
		return KindUnknown
	case logcatLines >= kernelLines:
		return KindLogcat
	default:
		return KindKernel
	}
}
