// Package format renders ERB template syntax trees into canonical
// source text.
//
// The layout engine follows the usual group/breakable document
// algebra: a Doc describes layout constraints (text, groups,
// breakable separators, indentation) and the renderer resolves them
// against a maximum line width. A group renders flat when it fits on
// the current line and contains no forced break; otherwise every
// breakable inside it becomes a line break at the current
// indentation.
package format

import "strings"

// Doc is a layout description. Build one from Text, Group, Indent
// and the breakable constructors, then resolve it with Render.
type Doc interface {
	doc()
}

type textDoc struct {
	s string
}

type concatDoc struct {
	docs []Doc
}

type groupDoc struct {
	body Doc
}

type indentDoc struct {
	body Doc
}

// lineDoc is a breakable separator. Flat groups render it as its
// flat text; broken groups render it as a line break plus the
// current indentation. A forced lineDoc always breaks, and a blank
// one emits one empty line before the break.
type lineDoc struct {
	flat  string
	force bool
	blank bool
}

func (textDoc) doc()   {}
func (concatDoc) doc() {}
func (groupDoc) doc()  {}
func (indentDoc) doc() {}
func (lineDoc) doc()   {}

// Text is literal content. It may contain newlines (comments are
// emitted verbatim); column accounting restarts after each.
func Text(s string) Doc { return textDoc{s: s} }

func Concat(docs ...Doc) Doc { return concatDoc{docs: docs} }

// Group tries to render its body on one line, breaking only when the
// body holds a forced break or exceeds the remaining width.
func Group(docs ...Doc) Doc { return groupDoc{body: concatDoc{docs: docs}} }

// Indent deepens the indentation for every break inside its body.
func Indent(docs ...Doc) Doc { return indentDoc{body: concatDoc{docs: docs}} }

// Line renders as a single space when flat.
func Line() Doc { return lineDoc{flat: " "} }

// SoftLine renders as nothing when flat.
func SoftLine() Doc { return lineDoc{} }

// HardLine always breaks, regardless of fit.
func HardLine() Doc { return lineDoc{force: true} }

// BlankLine always breaks and leaves exactly one blank line.
func BlankLine() Doc { return lineDoc{force: true, blank: true} }

// Separated joins items with the given separator.
func Separated(items []Doc, sep func() Doc) Doc {
	var docs []Doc
	for i, item := range items {
		if i > 0 {
			docs = append(docs, sep())
		}
		docs = append(docs, item)
	}
	return concatDoc{docs: docs}
}

const indentStr = "  "

// Render resolves the document against the maximum line width. The
// root renders in broken context, like a group that did not fit.
func Render(d Doc, maxWidth int) string {
	r := &renderer{maxWidth: maxWidth}
	r.render(d, 0, true)
	return r.sb.String()
}

type renderer struct {
	sb       strings.Builder
	maxWidth int
	column   int
}

func (r *renderer) write(s string) {
	r.sb.WriteString(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		r.column = len(s) - idx - 1
	} else {
		r.column += len(s)
	}
}

func (r *renderer) render(d Doc, indent int, broken bool) {
	switch t := d.(type) {
	case textDoc:
		r.write(t.s)
	case concatDoc:
		for _, child := range t.docs {
			r.render(child, indent, broken)
		}
	case groupDoc:
		flat := !hasForce(t.body) && r.column+flatWidth(t.body) <= r.maxWidth
		r.render(t.body, indent, !flat)
	case indentDoc:
		r.render(t.body, indent+1, broken)
	case lineDoc:
		if !broken && !t.force {
			r.write(t.flat)
			return
		}
		if t.blank {
			r.write("\n")
		}
		r.write("\n")
		r.write(strings.Repeat(indentStr, indent))
	}
}

// flatWidth is the width of d rendered on one line.
func flatWidth(d Doc) int {
	switch t := d.(type) {
	case textDoc:
		return len(t.s)
	case concatDoc:
		width := 0
		for _, child := range t.docs {
			width += flatWidth(child)
		}
		return width
	case groupDoc:
		return flatWidth(t.body)
	case indentDoc:
		return flatWidth(t.body)
	case lineDoc:
		return len(t.flat)
	}
	return 0
}

// hasForce reports whether d contains an unconditional break
// anywhere, including inside nested groups: a forced break deep in a
// subtree makes every enclosing group impossible to flatten.
func hasForce(d Doc) bool {
	switch t := d.(type) {
	case textDoc:
		return strings.ContainsRune(t.s, '\n')
	case concatDoc:
		for _, child := range t.docs {
			if hasForce(child) {
				return true
			}
		}
		return false
	case groupDoc:
		return hasForce(t.body)
	case indentDoc:
		return hasForce(t.body)
	case lineDoc:
		return t.force
	}
	return false
}
