// Package router splits a composite capture into sections by header line and
// hands each section's lines to the parser registered for it.
package router

import "regexp"

// Section is the handle for one registered section parser. It holds the
// result of the most recent time the section was parsed.
type Section[T any] struct {
	parse  func([]string) T
	result T
	ok     bool
}

// Result returns the parsed section, or ok == false if the section was never
// entered.
func (s *Section[T]) Result() (T, bool) {
	return s.result, s.ok
}

func (s *Section[T]) commit(lines []string) {
	s.result = s.parse(lines)
	s.ok = true
}

type handler interface {
	commit(lines []string)
}

type rule struct {
	re *regexp.Regexp
	h  handler
}

// Router routes lines to section handlers. Rules are tried in registration
// order and the first match selects the section. A Router is single-use and
// not safe for concurrent use.
type Router struct {
	rules    []rule
	active   handler
	buf      []string
	onSwitch func()
}

// New creates a Router with no rules and no active section.
func New() *Router {
	return &Router{}
}

// Add registers a header pattern that must match a whole line. Lines after
// the header, up to the next section switch, are passed to parse.
func Add[T any](r *Router, pattern string, parse func([]string) T) *Section[T] {
	s := &Section[T]{parse: parse}
	r.rules = append(r.rules, rule{
		re: regexp.MustCompile(`^(?:` + pattern + `)$`),
		h:  s,
	})
	return s
}

// Initial installs the handler that is active before any header is seen.
func Initial[T any](r *Router, parse func([]string) T) *Section[T] {
	s := &Section[T]{parse: parse}
	r.active = s
	return s
}

// OnSwitch sets a hook called once every time the active section changes.
// It runs after the previous section has been committed.
func (r *Router) OnSwitch(fn func()) {
	r.onSwitch = fn
}

// Feed processes one line.
func (r *Router) Feed(line string) {
	target := r.match(line)
	if target == nil || target == r.active {
		if r.active != nil {
			r.buf = append(r.buf, line)
		}
		return
	}

	r.flush()
	r.active = target
	if r.onSwitch != nil {
		r.onSwitch()
	}
}

// Commit flushes the active section. Call it once after the last line.
func (r *Router) Commit() {
	r.flush()
	r.active = nil
}

func (r *Router) flush() {
	if r.active != nil {
		r.active.commit(r.buf)
	}
	r.buf = nil
}

func (r *Router) match(line string) handler {
	for _, rl := range r.rules {
		if rl.re.MatchString(line) {
			return rl.h
		}
	}
	return nil
}

// Discard is a parse func for sections whose content is ignored.
func Discard([]string) struct{} {
	return struct{}{}
}
