package search

import (
	"strings"

	"github.com/vanderheijden86/marktree/pkg/model"
)

// Document is one indexed page.
type Document struct {
	Key   string
	Route string
	Title string
	Tags  string
	Body  string
}

// PageDocument returns the indexed form of a page. Whitespace is trimmed and
// tags are joined with spaces.
func PageDocument(doc model.Doc) Document {
	return Document{
		Key:   doc.Key(),
		Route: doc.Route(),
		Title: strings.TrimSpace(doc.Title()),
		Tags:  strings.TrimSpace(strings.Join(doc.Matter.Tags, " ")),
		Body:  strings.TrimSpace(string(doc.Body)),
	}
}

// DocumentsFromPages builds documents for every item that has a page.
func DocumentsFromPages(items []model.Doc) []Document {
	docs := make([]Document, 0, len(items))
	for _, item := range items {
		if !item.IsPage() {
			continue
		}
		docs = append(docs, PageDocument(item))
	}
	return docs
}
