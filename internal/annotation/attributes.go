package annotation

import "strings"

// ResolveAttributes returns the attributes in effect on a keyframe: prev
// overlaid with the keys cur sets. Neither input is modified.
func ResolveAttributes(prev, cur map[string]string) map[string]string {
	out := make(map[string]string, len(prev)+len(cur))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range cur {
		out[k] = v
	}
	return out
}

// AttributeName extracts the attribute name from a stored attribute spec
// such as "~radio=color:red,blue" (name "color").
func AttributeName(spec string) string {
	name := spec
	if i := strings.Index(name, "="); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	return name
}
