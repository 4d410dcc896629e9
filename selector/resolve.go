package selector

import (
	"strconv"
	"strings"

	"github.com/osawyer/domscope/dom"
)

// Resolve walks a positional XPath (the form XPath generates) back to an
// arena handle. Returns 0 when the path does not match the document.
// Only /tag and /tag[n] steps are understood.
func Resolve(a *dom.Arena, xpath string) dom.Handle {
	xpath = strings.TrimSpace(xpath)
	if xpath == "" || xpath[0] != '/' {
		return 0
	}

	steps := strings.Split(strings.TrimPrefix(xpath, "/"), "/")
	if len(steps) == 0 || steps[0] != "html" {
		return 0
	}

	cur := a.Root()
	if cur == 0 {
		return 0
	}

	for _, s := range steps[1:] {
		tag, index := parseStep(s)
		if tag == "" {
			return 0
		}

		found := dom.Handle(0)
		n := 0
		for _, child := range a.Children(cur) {
			if a.Tag(child) != tag {
				continue
			}
			n++
			if n == index {
				found = child
				break
			}
		}
		if found == 0 {
			return 0
		}
		cur = found
	}
	return cur
}

// parseStep splits "tag[n]" into its tag and 1-based index; a bare tag
// means the first same-tag child.
func parseStep(s string) (string, int) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return s, 1
	}
	close := strings.IndexByte(s, ']')
	if close < open {
		return "", 0
	}
	n, err := strconv.Atoi(s[open+1 : close])
	if err != nil || n < 1 {
		return "", 0
	}
	return s[:open], n
}
