package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// fileImport is one import statement of one file under internal/.
type fileImport struct {
	file string
	imp  string
}

func TestLayerBoundaries(t *testing.T) {
	modulePath, imports := internalImports(t)

	var bad []string
	for _, fi := range imports {
		for _, banned := range disallowedImports(modulePath, layerFor(fi.file)) {
			if strings.HasPrefix(fi.imp, banned) {
				bad = append(bad, fmt.Sprintf("- %s imports %q (layer %s may not import %q)", fi.file, fi.imp, layerFor(fi.file), banned))
				break
			}
		}
	}
	if len(bad) > 0 {
		t.Fatalf("import boundary violations:\n%s", strings.Join(bad, "\n"))
	}
}

func TestClientsOnlyImportedByApp(t *testing.T) {
	modulePath, imports := internalImports(t)
	clients := modulePath + "/internal/clients/"

	var bad []string
	for _, fi := range imports {
		if strings.HasPrefix(fi.file, "internal/clients/") || strings.HasPrefix(fi.file, "internal/app/") {
			continue
		}
		if strings.HasPrefix(fi.imp, clients) {
			bad = append(bad, fmt.Sprintf("- %s imports %q", fi.file, fi.imp))
		}
	}
	if len(bad) > 0 {
		t.Fatalf("internal/clients imported outside internal/app (inject through a store or service interface):\n%s", strings.Join(bad, "\n"))
	}
}

func layerFor(rel string) string {
	for _, layer := range []string{"platform", "domain", "data", "services", "http"} {
		if strings.HasPrefix(rel, "internal/"+layer+"/") {
			return layer
		}
	}
	return ""
}

func disallowedImports(modulePath string, layer string) []string {
	var dirs []string
	switch layer {
	case "platform":
		dirs = []string{"domain/", "data/", "services", "http", "app", "importer", "predict", "observability"}
	case "domain":
		dirs = []string{"data/", "services", "http", "app", "observability"}
	case "data":
		dirs = []string{"services", "http", "app", "importer", "predict"}
	case "services":
		dirs = []string{"http", "app", "importer"}
	case "http":
		dirs = []string{"app", "importer"}
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, modulePath+"/internal/"+d)
	}
	return out
}

// internalImports parses the import block of every .go file under internal/.
func internalImports(t *testing.T) (string, []fileImport) {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	fset := token.NewFileSet()
	var out []fileImport
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			out = append(out, fileImport{file: filepath.ToSlash(rel), imp: imp})
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return modulePath, out
}

func findModuleRoot(dir string) (string, error) {
	for start := dir; ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if mp, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "module "); ok {
			if mp = strings.TrimSpace(mp); mp != "" {
				return mp, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
