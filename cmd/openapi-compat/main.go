// Command openapi-compat fails when a revised swagger document drops
// operations or response codes that the web client relies on.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

// document is the subset of a swagger 2.0 document the check reads.
type document struct {
	BasePath string                          `yaml:"basePath"`
	Paths    map[string]map[string]yaml.Node `yaml:"paths"`
}

type operation struct {
	Responses map[string]yaml.Node `yaml:"responses"`
}

// spec maps "METHOD /path" to its response codes.
type spec map[string]map[string]struct{}

func main() {
	basePath := flag.String("base", "", "base OpenAPI swagger.yaml path")
	revisionPath := flag.String("revision", "", "revision OpenAPI swagger.yaml path")
	required := flag.String("require", "", "comma-separated operations that must exist, e.g. \"POST /auth/login,GET /stories\"")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" || strings.TrimSpace(*revisionPath) == "" {
		fmt.Fprintln(os.Stderr, "usage: openapi-compat -base <path> -revision <path> [-require ops]")
		os.Exit(2)
	}

	baseSpec, err := loadFile(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base spec: %v\n", err)
		os.Exit(1)
	}
	revisionSpec, err := loadFile(*revisionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load revision spec: %v\n", err)
		os.Exit(1)
	}

	issues := compare(baseSpec, revisionSpec)
	issues = append(issues, missingRequired(revisionSpec, *required)...)
	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}

	fmt.Println("openapi compatibility check passed")
}

func loadFile(path string) (spec, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw)
}

func parse(raw []byte) (spec, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, fmt.Errorf("missing top-level paths field")
	}

	out := make(spec)
	for path, methods := range doc.Paths {
		for method, node := range methods {
			m := strings.ToLower(strings.TrimSpace(method))
			if _, ok := supportedMethods[m]; !ok {
				continue
			}
			var op operation
			if err := node.Decode(&op); err != nil {
				return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(m), path, err)
			}
			codes := make(map[string]struct{}, len(op.Responses))
			for code := range op.Responses {
				if c := strings.ToLower(strings.TrimSpace(code)); c != "" {
					codes[c] = struct{}{}
				}
			}
			out[key(m, path)] = codes
		}
	}
	return out, nil
}

func key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func compare(base, revision spec) []string {
	var issues []string
	for op, baseCodes := range base {
		revCodes, ok := revision[op]
		if !ok {
			issues = append(issues, "removed operation: "+op)
			continue
		}
		for code := range baseCodes {
			if _, ok := revCodes[code]; !ok {
				issues = append(issues, fmt.Sprintf("removed response code: %s -> %s", op, strings.ToUpper(code)))
			}
		}
	}
	sort.Strings(issues)
	return issues
}

func missingRequired(revision spec, required string) []string {
	var issues []string
	for _, raw := range strings.Split(required, ",") {
		fields := strings.Fields(raw)
		if len(fields) != 2 {
			continue
		}
		op := key(fields[0], fields[1])
		if _, ok := revision[op]; !ok {
			issues = append(issues, "required operation missing: "+op)
		}
	}
	return issues
}
