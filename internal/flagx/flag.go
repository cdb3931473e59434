// Package flagx lets several independent loaders share one command line.
// Each loader picks out only the flags it understands and parses them with
// its own flag.FlagSet, so unknown flags never cause a parse error.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns a slice of command-line arguments that only contains
// the allowed flags (and their values) specified in allowedFlags.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
//
// A token that starts with '-' is never consumed as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// LookupString returns the last value given for any of names (written
// without dashes, e.g. "c", "config"). Missing flags yield "".
func LookupString(args []string, names ...string) string {
	var value string

	dashed := make([]string, 0, len(names)*2)
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		fs.StringVar(&value, n, "", "")
		dashed = append(dashed, "-"+n, "--"+n)
	}
	_ = fs.Parse(FilterArgs(args, dashed))

	return value
}

// ConfigPath extracts the JSON config file path given via -c or -config.
// If neither is present, an empty string is returned.
func ConfigPath(args []string) string {
	return LookupString(args, "c", "config")
}
