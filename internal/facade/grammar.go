package facade

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// grammarRegistry maps a source file extension to the tree-sitter grammar
// used to parse it. Mirrors the extension→parser registry shape the
// teacher's AST extractors use for per-language dispatch, narrowed here to
// the single TypeScript/JavaScript family spec.md's module graph describes.
type grammarRegistry struct {
	mu    sync.RWMutex
	byExt map[string]*sitter.Language
}

func newGrammarRegistry() *grammarRegistry {
	r := &grammarRegistry{byExt: make(map[string]*sitter.Language)}
	ts := typescript.GetLanguage()
	r.byExt[".ts"] = ts
	r.byExt[".mts"] = ts
	r.byExt[".cts"] = ts
	r.byExt[".tsx"] = tsx.GetLanguage()
	js := javascript.GetLanguage()
	r.byExt[".js"] = js
	r.byExt[".jsx"] = js
	r.byExt[".mjs"] = js
	r.byExt[".cjs"] = js
	return r
}

func (r *grammarRegistry) forPath(path string) (*sitter.Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.byExt[ext]
	return lang, ok
}

// IsSourceFile reports whether path has a registered TypeScript/JavaScript
// extension.
func IsSourceFile(path string) bool {
	_, ok := defaultGrammars.forPath(path)
	return ok
}

var defaultGrammars = newGrammarRegistry()
