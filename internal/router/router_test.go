package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func join(lines []string) string { return strings.Join(lines, "|") }

func TestRoutesSections(t *testing.T) {
	r := New()
	mem := Add(r, `------ MEMORY INFO .*`, join)
	cpu := Add(r, `------ CPU INFO .*`, join)
	never := Add(r, `------ PROCRANK .*`, join)
	Add(r, `------ .*`, Discard)

	for _, l := range []string{
		"preamble before any section",
		"------ MEMORY INFO (/proc/meminfo) ------",
		"MemTotal: 100 kB",
		"MemFree: 50 kB",
		"------ UNKNOWN (foo) ------",
		"ignored",
		"------ CPU INFO (top) ------",
		"User 1%",
	} {
		r.Feed(l)
	}
	r.Commit()

	got, ok := mem.Result()
	require.True(t, ok)
	assert.Equal(t, "MemTotal: 100 kB|MemFree: 50 kB", got)

	got, ok = cpu.Result()
	require.True(t, ok)
	assert.Equal(t, "User 1%", got)

	_, ok = never.Result()
	assert.False(t, ok)
}

func TestInitialAndSwitchHook(t *testing.T) {
	r := New()
	header := Initial(r, join)
	body := Add(r, `== body ==`, join)

	switches := 0
	var headerAtSwitch string
	r.OnSwitch(func() {
		switches++
		headerAtSwitch, _ = header.Result()
	})

	r.Feed("h1")
	r.Feed("h2")
	r.Feed("== body ==")
	r.Feed("b1")
	r.Commit()

	assert.Equal(t, 1, switches)
	assert.Equal(t, "h1|h2", headerAtSwitch)
	b, _ := body.Result()
	assert.Equal(t, "b1", b)
}

func TestSameSectionHeaderDoesNotSwitch(t *testing.T) {
	r := New()
	noop := Add(r, `DUMP OF SERVICE .*`, join)

	switches := 0
	r.OnSwitch(func() { switches++ })

	r.Feed("DUMP OF SERVICE a:")
	r.Feed("x")
	r.Feed("DUMP OF SERVICE b:")
	r.Feed("y")
	r.Commit()

	assert.Equal(t, 1, switches)
	got, _ := noop.Result()
	assert.Equal(t, "x|DUMP OF SERVICE b:|y", got)
}

func TestReenteredSectionKeepsLatest(t *testing.T) {
	r := New()
	a := Add(r, `A`, join)
	Add(r, `B`, join)

	for _, l := range []string{"A", "1", "B", "2", "A", "3"} {
		r.Feed(l)
	}
	r.Commit()

	got, _ := a.Result()
	assert.Equal(t, "3", got)
}

func TestLinesWithoutSectionAreDiscarded(t *testing.T) {
	r := New()
	a := Add(r, `A`, func(lines []string) int { return len(lines) })
	r.Feed("loose")
	r.Commit()

	_, ok := a.Result()
	assert.False(t, ok)
}

func TestEmptySectionStillParsed(t *testing.T) {
	r := New()
	a := Add(r, `A`, func(lines []string) int { return len(lines) })
	r.Feed("A")
	r.Commit()

	n, ok := a.Result()
	assert.True(t, ok)
	assert.Zero(t, n)
}
