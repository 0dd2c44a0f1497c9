package templates

import "strings"

// StyleVar is one CSS custom property
type StyleVar struct {
	Name  string
	Value string
}

// Styles returns the inline rule setting the gate's CSS variables, or ""
// when no value is set. Empty values are skipped.
func Styles(vars ...StyleVar) string {
	var b strings.Builder
	for _, v := range vars {
		if v.Value == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(v.Name)
		b.WriteString(": ")
		b.WriteString(v.Value)
		b.WriteString(";")
	}
	if b.Len() == 0 {
		return ""
	}
	return ".newslettergate { " + b.String() + " }"
}
