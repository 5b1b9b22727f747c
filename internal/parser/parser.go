package parser

import (
	"errors"
	"fmt"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"shaker/internal/shared/observability"
)

// ParsedFile holds one parsed source file. The tree stays open so retention
// graphs can keep referencing its nodes; the owner calls Close when the
// graph is no longer needed.
type ParsedFile struct {
	Path     string
	Language string
	Source   []byte
	tree     *sitter.Tree
}

func (f *ParsedFile) Root() *sitter.Node {
	return f.tree.RootNode()
}

func (f *ParsedFile) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

type Parser struct {
	loader *GrammarLoader
}

func NewParser(loader *GrammarLoader) *Parser {
	return &Parser{loader: loader}
}

// ParseFile parses content with the grammar matching path's extension.
func (p *Parser) ParseFile(path string, content []byte) (*ParsedFile, error) {
	lang := DetectLanguage(path)
	if lang == "" {
		return nil, errors.New("unsupported language")
	}

	grammar := p.loader.Language(lang)
	if grammar == nil {
		return nil, fmt.Errorf("grammar not loaded: %s", lang)
	}

	start := time.Now()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New("parse failed")
	}

	observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())

	return &ParsedFile{
		Path:     path,
		Language: lang,
		Source:   content,
		tree:     tree,
	}, nil
}
