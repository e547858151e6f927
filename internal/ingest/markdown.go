package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/docbase-dev/docbase/internal/kb"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ExtractText flattens markdown source to plain text for indexing.
// Block boundaries become blank lines so chunking still sees paragraphs,
// and code block content is kept since it is often what people search for.
func ExtractText(source []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if isBlock(n) && sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
		case *ast.CodeSpan:
			// Text children handle the content.
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String())
}

// ExtractTitle returns the first level-1 heading of the markdown source,
// or "" when there is none.
func ExtractTitle(source []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			title = headingText(h, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func headingText(h *ast.Heading, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func isBlock(n ast.Node) bool {
	switch n.(type) {
	case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote,
		*ast.FencedCodeBlock, *ast.CodeBlock:
		return true
	}
	return false
}

// RequestFromFile builds an ingestion request from a walked file. Markdown
// files get their first heading as title and plain-text extraction; other
// files go in verbatim with the filename as title.
func RequestFromFile(file FileInfo, technology string) (kb.IngestRequest, error) {
	raw, err := os.ReadFile(file.Path)
	if err != nil {
		return kb.IngestRequest{}, err
	}

	var title, content string
	switch strings.ToLower(filepath.Ext(file.Path)) {
	case ".md", ".markdown":
		title = ExtractTitle(raw)
		content = ExtractText(raw)
	default:
		content = string(raw)
	}
	if title == "" {
		base := filepath.Base(file.Path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return kb.IngestRequest{
		Title:      title,
		Content:    content,
		SourceRef:  file.RelPath,
		Technology: technology,
		Metadata:   map[string]string{"content_hash": file.ContentHash},
	}, nil
}
