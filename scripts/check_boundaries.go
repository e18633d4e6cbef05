package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "promovote"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule constrains the packages under one path of a service. Paths are
// relative to the service root, e.g. "application/tally". Allowed entries
// match one package exactly, or a whole subtree when they end in "/...".
type layerRule struct {
	Package    string
	Allowed    []string
	Forbidden  []string
	Shared     bool
	ThirdParty bool
}

var (
	applicationCore = []string{"application", "domain/...", "ports"}

	// The longest matching Package wins. Files at the service root wire the
	// module together and are only held to the cross-module rule.
	layerRules = []layerRule{
		{
			Package:   "domain",
			Allowed:   []string{"domain/..."},
			Forbidden: []string{"adapters", "application", "ports", "transport"},
		},
		{
			Package:   "ports",
			Allowed:   []string{"domain/..."},
			Forbidden: []string{"application", "adapters", "transport"},
			Shared:    true,
		},
		{
			Package:   "application",
			Allowed:   []string{"domain/...", "ports"},
			Forbidden: []string{"adapters", "transport"},
		},
		{
			Package:   "application/eligibility",
			Allowed:   applicationCore,
			Forbidden: []string{"adapters", "transport"},
		},
		{
			Package:   "application/tally",
			Allowed:   applicationCore,
			Forbidden: []string{"adapters", "transport"},
		},
		{
			Package:   "application/queries",
			Allowed:   applicationCore,
			Forbidden: []string{"adapters", "transport"},
		},
		{
			Package:   "application/workers",
			Allowed:   applicationCore,
			Forbidden: []string{"adapters", "transport"},
		},
		{
			Package:   "application/commands",
			Allowed:   append([]string{"application/eligibility", "application/tally"}, applicationCore...),
			Forbidden: []string{"adapters", "transport"},
		},
		{
			Package:    "adapters",
			Allowed:    []string{"domain/...", "ports"},
			Forbidden:  []string{"application", "transport"},
			Shared:     true,
			ThirdParty: true,
		},
		{
			Package:    "adapters/http",
			Allowed:    []string{"application/commands", "application/queries", "domain/...", "transport/http"},
			ThirdParty: true,
		},
		{
			Package:    "transport",
			Allowed:    []string{"transport/..."},
			Forbidden:  []string{"application", "adapters", "domain", "ports"},
			ThirdParty: true,
		},
	}
)

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}

		servicePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
		pkg := strings.Join(parts[3:len(parts)-1], "/")
		violations = append(violations, validateFile(path, normalized, pkg, servicePrefix)...)
		return nil
	})

	return violations
}

func validateFile(path string, normalizedPath string, pkg string, servicePrefix string) []violation {
	var violations []violation

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return append(violations, violation{
			File: normalizedPath,
			Line: 1,
			Rule: "file must parse",
		})
	}

	rule, ruled := ruleFor(pkg)
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		report := func(text string) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   text,
			})
		}

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, servicePrefix) {
			report("cross-module imports are forbidden")
			continue
		}
		if !ruled {
			continue
		}
		for _, message := range validateImport(rule, importPath, servicePrefix) {
			report(message)
		}
	}

	return violations
}

func validateImport(rule layerRule, importPath string, servicePrefix string) []string {
	var messages []string

	if hasPrefix(importPath, servicePrefix) {
		target := strings.TrimPrefix(strings.TrimPrefix(importPath, servicePrefix), "/")
		for _, forbidden := range rule.Forbidden {
			if hasPrefix(target, forbidden) {
				messages = append(messages, fmt.Sprintf("%s must not import %s", rule.Package, forbidden))
			}
		}
		if !allows(rule.Allowed, target) {
			messages = append(messages, fmt.Sprintf("%s import is outside explicit allowlist", rule.Package))
		}
		return messages
	}

	switch {
	case hasPrefix(importPath, modulePath+"/internal/shared"):
		if !rule.Shared {
			messages = append(messages, fmt.Sprintf("%s must not import shared kernel packages", rule.Package))
		}
	case hasPrefix(importPath, modulePath):
		messages = append(messages, fmt.Sprintf("%s must not import runtime infrastructure", rule.Package))
	case !isStdlib(importPath) && !rule.ThirdParty:
		messages = append(messages, fmt.Sprintf("%s import is outside explicit allowlist", rule.Package))
	}
	return messages
}

func ruleFor(pkg string) (layerRule, bool) {
	var best layerRule
	found := false
	for _, rule := range layerRules {
		if hasPrefix(pkg, rule.Package) && (!found || len(rule.Package) > len(best.Package)) {
			best = rule
			found = true
		}
	}
	return best, found
}

func allows(allowed []string, target string) bool {
	for _, entry := range allowed {
		if tree, ok := strings.CutSuffix(entry, "/..."); ok {
			if hasPrefix(target, tree) {
				return true
			}
			continue
		}
		if target == entry {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
