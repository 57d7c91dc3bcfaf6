// Package latexfmt wraps recognized LaTeX for pasting into other documents.
package latexfmt

import (
	"bytes"
	"fmt"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
)

type Mode string

const (
	Normal   Mode = "normal"
	Inline   Mode = "inline"
	Display  Mode = "display"
	Equation Mode = "equation"
	MathML   Mode = "mathml"
)

// Modes lists the copy modes in menu order.
var Modes = []Mode{Normal, Inline, Display, Equation, MathML}

var labels = map[Mode]string{
	Normal:   "Raw LaTeX",
	Inline:   "Inline $...$",
	Display:  "Display $$...$$",
	Equation: "equation environment",
	MathML:   "MathML",
}

// Label is the menu text for m.
func (m Mode) Label() string {
	if l, ok := labels[m]; ok {
		return l
	}
	return string(m)
}

// ParseMode accepts a mode name or its label. Unknown values yield Normal and false.
func ParseMode(s string) (Mode, bool) {
	s = strings.TrimSpace(s)
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) || s == m.Label() {
			return m, true
		}
	}
	return Normal, false
}

var md = goldmark.New(goldmark.WithExtensions(treeblood.MathML()))

// Format trims latex and wraps it for mode. Blank input is returned unchanged.
func Format(latex string, mode Mode) (string, error) {
	text := strings.TrimSpace(latex)
	if text == "" {
		return latex, nil
	}
	switch mode {
	case Inline:
		return "$" + text + "$", nil
	case Display:
		return "$$" + text + "$$", nil
	case Equation:
		return "\\begin{equation}\n" + text + "\n\\end{equation}", nil
	case MathML:
		return toMathML(text)
	default:
		return text, nil
	}
}

func toMathML(latex string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte("$$"+latex+"$$"), &buf); err != nil {
		return "", fmt.Errorf("failed to convert to MathML: %w", err)
	}
	html := buf.String()
	start := strings.Index(html, "<math")
	end := strings.LastIndex(html, "</math>")
	if start < 0 || end < start {
		return "", fmt.Errorf("failed to convert to MathML: no math element in output")
	}
	return html[start : end+len("</math>")], nil
}
