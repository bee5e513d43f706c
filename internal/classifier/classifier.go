// Package classifier maps log messages to event categories using an ordered
// list of patterns.
package classifier

import "regexp"

// Classifier holds an ordered list of pattern rules. The first rule whose
// pattern matches a message decides its category.
type Classifier struct {
	rules []rule
}

type rule struct {
	re       *regexp.Regexp
	category string
}

// New creates an empty Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Register appends a rule. Rules registered earlier take priority.
func (c *Classifier) Register(re *regexp.Regexp, category string) {
	c.rules = append(c.rules, rule{re: re, category: category})
}

// MustRegister compiles expr so that it must match the whole message and
// registers it. It panics if expr does not compile.
func (c *Classifier) MustRegister(expr, category string) {
	c.Register(Whole(expr), category)
}

// Classify returns the category of the first rule matching msg.
func (c *Classifier) Classify(msg string) (string, bool) {
	for _, r := range c.rules {
		if r.re.MatchString(msg) {
			return r.category, true
		}
	}
	return "", false
}

// Len returns the number of registered rules.
func (c *Classifier) Len() int {
	return len(c.rules)
}

// Whole compiles expr anchored at both ends.
func Whole(expr string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + expr + `)$`)
}
