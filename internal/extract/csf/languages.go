package csf

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageRegistry maps story file extensions to tree-sitter grammars.
type LanguageRegistry struct {
	mu        sync.RWMutex
	extToLang map[string]string
	languages map[string]*sitter.Language
}

// NewLanguageRegistry creates a registry with the JavaScript and TypeScript
// grammars registered.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		extToLang: make(map[string]string),
		languages: make(map[string]*sitter.Language),
	}

	r.register("javascript", javascript.GetLanguage(), ".js", ".jsx", ".mjs")
	r.register("typescript", typescript.GetLanguage(), ".ts")
	r.register("tsx", tsx.GetLanguage(), ".tsx")

	return r
}

var (
	defaultRegistry     *LanguageRegistry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the shared registry.
func DefaultRegistry() *LanguageRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewLanguageRegistry()
	})
	return defaultRegistry
}

func (r *LanguageRegistry) register(name string, lang *sitter.Language, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.languages[name] = lang
	for _, ext := range exts {
		r.extToLang[ext] = name
	}
}

// ForPath returns the language name and grammar for a file path.
func (r *LanguageRegistry) ForPath(path string) (string, *sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.extToLang[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", nil, false
	}
	return name, r.languages[name], true
}

// SupportedExtensions returns every registered extension.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}
