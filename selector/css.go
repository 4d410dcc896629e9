package selector

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/osawyer/domscope/dom"
)

// dynamicID matches identifiers that end in digits — typically generated
// per render (field-1823, react-select-42) and useless for re-location.
var dynamicID = regexp.MustCompile(`\d+$`)

// utilityPrefixes are class-name prefixes from utility CSS frameworks.
// They describe presentation, not identity, and are excluded from
// generated selectors.
var utilityPrefixes = []string{
	"col-", "row-", "m-", "mt-", "mb-", "ml-", "mr-", "mx-", "my-",
	"p-", "pt-", "pb-", "pl-", "pr-", "px-", "py-",
	"text-", "bg-", "border-", "rounded-", "shadow-",
	"d-", "w-", "h-", "flex-", "justify-", "align-", "items-", "gap-",
	"fs-", "fw-", "font-", "grid-", "order-", "float-",
}

// formTags are elements whose name attribute is meaningful for selection.
var formTags = map[string]bool{
	"input": true, "select": true, "textarea": true, "button": true, "form": true,
}

// CSS derives the best-effort stable CSS selector for an element. Rules are
// tried in a fixed priority order and the first applicable rule wins; there
// is no scoring across alternatives.
func CSS(a *dom.Arena, h dom.Handle) string {
	tag := a.Tag(h)
	if tag == "" {
		return ""
	}

	// Test hooks beat everything else.
	for _, attr := range []string{"data-testid", "data-test", "data-cy"} {
		if v := a.Attr(h, attr); v != "" {
			return fmt.Sprintf(`[%s=%q]`, attr, v)
		}
	}

	if id := a.Attr(h, "id"); id != "" && !dynamicID.MatchString(id) {
		return "#" + id
	}

	if v := a.Attr(h, "aria-label"); v != "" {
		return fmt.Sprintf(`%s[aria-label=%q]`, tag, v)
	}

	if stable := stableClasses(a.Attr(h, "class")); len(stable) > 0 {
		return tag + "." + strings.Join(stable, ".")
	}

	if formTags[tag] {
		if name := a.Attr(h, "name"); name != "" {
			return fmt.Sprintf(`%s[name=%q]`, tag, name)
		}
	}

	typ := a.Attr(h, "type")
	if tag == "input" && (typ == "radio" || typ == "checkbox") {
		if v := a.Attr(h, "value"); v != "" {
			return fmt.Sprintf(`input[type=%q][value=%q]`, typ, v)
		}
	}

	if tag == "input" {
		if ph := a.Attr(h, "placeholder"); ph != "" {
			if typ == "" {
				typ = "text"
			}
			return fmt.Sprintf(`input[type=%q][placeholder=%q]`, typ, ph)
		}
	}

	if tag == "input" && typ == "submit" {
		if v := a.Attr(h, "value"); v != "" {
			return fmt.Sprintf(`input[type="submit"][value=%q]`, v)
		}
	}

	if tag == "button" || tag == "a" {
		if text := truncate(a.Text(h), 40); text != "" {
			return fmt.Sprintf(`%s:contains(%q)`, tag, text)
		}
	}

	if tag == "a" {
		if href := a.Attr(h, "href"); href != "" && href != "#" {
			return fmt.Sprintf(`a[href=%q]`, href)
		}
	}

	if v := a.Attr(h, "title"); v != "" {
		return fmt.Sprintf(`%s[title=%q]`, tag, v)
	}
	if v := a.Attr(h, "alt"); v != "" {
		return fmt.Sprintf(`%s[alt=%q]`, tag, v)
	}

	return tag
}

// stableClasses filters a class attribute down to names usable for
// selection: no utility prefixes, no generated (digit-suffixed) names.
// At most two survive, in source order.
func stableClasses(classAttr string) []string {
	var out []string
	for _, c := range strings.Fields(classAttr) {
		if dynamicID.MatchString(c) || isUtility(c) {
			continue
		}
		out = append(out, c)
		if len(out) == 2 {
			break
		}
	}
	return out
}

func isUtility(class string) bool {
	for _, p := range utilityPrefixes {
		if strings.HasPrefix(class, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary so the cut never yields invalid UTF-8.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
