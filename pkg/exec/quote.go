package exec

import "strings"

// shellQuote quotes s for inclusion in a POSIX shell command line, only
// when necessary, so simple arguments remain readable in rendered argv.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}

	if !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}();&|<>!~#") {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellJoin quotes and joins argv into a single shell command string.
func shellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}

	return strings.Join(parts, " ")
}
