package build

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vango-dev/squid/pkg/routetree"
)

// Group is a set of sources compiled with the same settings.
type Group int

const (
	// GroupPages holds UI pages, compiled for the browser.
	GroupPages Group = iota

	// GroupAPI holds API handlers and props modules, compiled for the server.
	GroupAPI

	// GroupLambda holds functions deployed behind the lambda gateway.
	GroupLambda
)

func (g Group) String() string {
	switch g {
	case GroupPages:
		return "pages"
	case GroupAPI:
		return "api"
	case GroupLambda:
		return "lambda"
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// Source is one file found by Scan.
type Source struct {
	// Path is the file path on disk.
	Path string

	// Rel is the slash separated path relative to its group root.
	Rel string

	Group Group

	// Kind is the route kind. Lambda sources have no kind.
	Kind routetree.Kind
}

// Platform returns the bundler platform for the source.
func (s Source) Platform() string {
	if s.Group == GroupPages {
		return "browser"
	}
	return "node"
}

// Scan walks the pages and lambda directories. A missing lambda directory is
// not an error; lambdaDir may be empty.
func Scan(pagesDir, lambdaDir string) ([]Source, error) {
	pages, err := scanDir(pagesDir, classifyPage)
	if err != nil {
		return nil, fmt.Errorf("scan pages: %w", err)
	}

	if lambdaDir == "" {
		return pages, nil
	}
	lambdas, err := scanDir(lambdaDir, classifyLambda)
	if err != nil {
		if isNotExist(err) {
			return pages, nil
		}
		return nil, fmt.Errorf("scan lambda: %w", err)
	}
	return append(pages, lambdas...), nil
}

func scanDir(root string, classify func(rel string) (Source, bool)) ([]Source, error) {
	var out []Source
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		src, ok := classify(filepath.ToSlash(rel))
		if !ok {
			return nil
		}
		src.Path = p
		out = append(out, src)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out, nil
}

// skipped reports files that are never compiled: declarations, tests and
// dotfiles.
func skipped(rel string) bool {
	base := path.Base(rel)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".d.ts") {
		return true
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	return strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec")
}

func classifyPage(rel string) (Source, bool) {
	if skipped(rel) {
		return Source{}, false
	}
	ext := path.Ext(rel)
	stem := strings.TrimSuffix(rel, ext)

	switch ext {
	case ".tsx", ".jsx":
		return Source{Rel: rel, Group: GroupPages, Kind: routetree.KindPage}, true
	case ".ts", ".js", ".mts", ".mjs":
		if strings.HasSuffix(stem, routetree.PropsSuffix) {
			return Source{Rel: rel, Group: GroupAPI, Kind: routetree.KindProps}, true
		}
		return Source{Rel: rel, Group: GroupAPI, Kind: routetree.KindAPI}, true
	}
	return Source{}, false
}

func classifyLambda(rel string) (Source, bool) {
	if skipped(rel) {
		return Source{}, false
	}
	switch path.Ext(rel) {
	case ".ts", ".js", ".mts", ".mjs":
		return Source{Rel: rel, Group: GroupLambda}, true
	}
	return Source{}, false
}

// OutputRel returns the output path of a source relative to its group's
// output directory: the extension is replaced with .mjs.
func OutputRel(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + routetree.ModuleExt
}
