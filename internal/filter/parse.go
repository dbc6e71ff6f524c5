package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a filter written as "name" or "name:arg1,arg2,...".
func Parse(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	name, rest, hasArgs := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Spec{}, fmt.Errorf("%w: empty filter name in %q", ErrUnknownFilter, s)
	}
	var args []float64
	if hasArgs {
		for i, part := range strings.Split(rest, ",") {
			a, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return Spec{}, fmt.Errorf("%w: %s argument %d: %v", ErrInvalidArgs, name, i, err)
			}
			args = append(args, a)
		}
	}
	spec := Named(name, args...)
	if err := validate(spec); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// ParseList parses every entry with Parse.
func ParseList(items []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(items))
	for _, item := range items {
		spec, err := Parse(item)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
