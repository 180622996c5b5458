// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package htmltext turns the html fragments returned by Fortify on Demand
// into plain text. Newlines of the input are preserved and lines are never wrapped.
package htmltext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaces        = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Footer: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Table: true, atom.Tr: true, atom.Ul: true,
}

type textWriter struct {
	b    strings.Builder
	last byte
}

func (w *textWriter) raw(s string) {
	if s == "" {
		return
	}
	w.b.WriteString(s)
	w.last = s[len(s)-1]
}

func (w *textWriter) text(s string) {
	s = spaces.ReplaceAllString(s, " ")
	if w.last == 0 || w.last == '\n' {
		s = strings.TrimLeft(s, " ")
	}
	w.raw(s)
}

// Convert returns the plain text representation of an html fragment.
func Convert(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return normalize(fragment)
	}

	w := &textWriter{}
	walk(w, doc, false)
	return normalize(w.b.String())
}

func walk(w *textWriter, n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			w.raw(n.Data)
		} else {
			w.text(n.Data)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head, atom.Template:
			return
		case atom.Br:
			w.raw("\n")
			return
		case atom.Li:
			w.raw("\n* ")
		case atom.Td, atom.Th:
			if n.PrevSibling != nil {
				w.raw("\t")
			}
		case atom.Pre:
			pre = true
		}
		if blockElements[n.DataAtom] {
			w.raw("\n")
		}
		if n.DataAtom == atom.P {
			w.raw("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(w, c, pre)
	}

	if n.Type != html.ElementNode {
		return
	}
	if n.DataAtom == atom.A {
		if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "#") && strings.TrimSpace(textContent(n)) != href {
			w.raw(" [" + href + "]")
		}
	}
	if blockElements[n.DataAtom] {
		w.raw("\n")
	}
	if n.DataAtom == atom.P {
		w.raw("\n")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = blankLineRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
