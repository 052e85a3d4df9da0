package exec

import "unicode"

// SplitCommandLine splits s into program and arguments. Single and double
// quotes group text (the quotes are dropped) and unquoted whitespace
// separates words. There is no escaping and no variable expansion.
//
//	pnpm add "react-dom@^18"  =>  [pnpm add react-dom@^18]
func SplitCommandLine(s string) []string {
	var (
		out   []string
		buf   []rune
		quote rune
		inArg bool
	)

	flush := func() {
		if inArg {
			out = append(out, string(buf))
			buf = buf[:0]
			inArg = false
		}
	}

	for _, c := range s {
		switch {
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
			buf = append(buf, c)
		case c == '"' || c == '\'':
			quote = c
			inArg = true
		case unicode.IsSpace(c):
			flush()
		default:
			buf = append(buf, c)
			inArg = true
		}
	}
	flush()

	return out
}
