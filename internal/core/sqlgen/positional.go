package sqlgen

import "strconv"

// Positional rewrites %(name)s placeholders into positional $1..$n form.
// Repeated names reuse their first ordinal. The returned names are in
// first-appearance order and parallel the ordinals, so args can be built
// by looking each name up in the artifact's Parameters
func Positional(sql string) (string, []string) {
	idx := make(map[string]int, 4)
	names := make([]string, 0, 4)

	out := placeholderRe.ReplaceAllStringFunc(sql, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		n, ok := idx[name]
		if !ok {
			names = append(names, name)
			n = len(names)
			idx[name] = n
		}
		return "$" + strconv.Itoa(n)
	})
	return out, names
}
