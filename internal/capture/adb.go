package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single adb pull.
const DefaultTimeout = 2 * time.Minute

// ADB pulls captures from a device over adb.
type ADB struct {
	// Path is the adb binary. Empty means "adb" from $PATH.
	Path string
	// Serial selects the device. Empty leaves the choice to adb.
	Serial  string
	Timeout time.Duration
}

func (a *ADB) args(kind Kind) ([]string, error) {
	var args []string
	if a.Serial != "" {
		args = append(args, "-s", a.Serial)
	}
	switch kind {
	case KindLogcat:
		args = append(args, "logcat", "-d", "-v", "threadtime")
	case KindKernel:
		args = append(args, "shell", "dmesg")
	case KindDumpsys:
		args = append(args, "shell", "dumpsys", "batterystats")
	case KindBugreport:
		args = append(args, "shell", "dumpstate")
	default:
		return nil, fmt.Errorf("cannot pull capture kind %q", kind)
	}
	return args, nil
}

// Pull runs adb and returns its output as a capture of the given kind.
func (a *ADB) Pull(ctx context.Context, kind Kind) (*Capture, error) {
	args, err := a.args(kind)
	if err != nil {
		return nil, err
	}
	bin := a.Path
	if bin == "" {
		bin = "adb"
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := time.Now()
	out, err := runCommand(ctx, timeout, bin, args...)
	if err != nil {
		return nil, err
	}
	lines, err := ReadLines(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}
	slog.Info("capture pulled", "kind", kind, "serial", a.Serial, "lines", len(lines), "took", time.Since(start))

	name := a.Serial
	if name == "" {
		name = "device"
	}
	return &Capture{Path: fmt.Sprintf("adb://%s/%s", name, kind), Kind: kind, Lines: lines}, nil
}

// runCommand executes a command with a timeout and returns its stdout.
func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %v: %w (stderr: %s)", name, args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}
