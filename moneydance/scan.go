package moneydance

import "strings"

// splitFields splits one export line into its fields. Fields are separated by
// tabs and may be wrapped in single quotes; a doubled quote inside a quoted
// field stands for a literal quote. encoding/csv cannot parse this dialect
// (its quote character is fixed to `"`), so the splitter is hand-rolled.
func splitFields(line string) []string {
	if line == "" {
		return nil
	}
	var fields []string
	var b strings.Builder
	quoted := false // inside a quoted region of the current field
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' && quoted:
			if i+1 < len(runes) && runes[i+1] == '\'' {
				b.WriteRune('\'')
				i++
			} else {
				quoted = false
			}
		case r == '\'' && b.Len() == 0:
			// opening quote of a field
			quoted = true
		case r == '\t' && !quoted:
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	fields = append(fields, b.String())
	return fields
}
