// Package model defines the documents marktree loads from a content folder
// and shows in the sidebar tree.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DocType distinguishes tree rows.
type DocType string

const (
	DocRoot   DocType = "root"
	DocFolder DocType = "folder"
	DocFile   DocType = "file"
)

// Author is the author block of a page's front matter.
type Author struct {
	Name    string `yaml:"name" json:"name,omitempty"`
	Picture string `yaml:"picture" json:"picture,omitempty"`
}

// OGImage is the Open Graph image of a page.
type OGImage struct {
	URL string `yaml:"url" json:"url,omitempty"`
}

// FrontMatter is the metadata block at the top of a markdown page.
type FrontMatter struct {
	Title      string   `yaml:"title" json:"title,omitempty"`
	Date       string   `yaml:"date" json:"date,omitempty"`
	Excerpt    string   `yaml:"excerpt" json:"excerpt,omitempty"`
	CoverImage string   `yaml:"coverImage" json:"coverImage,omitempty"`
	Author     Author   `yaml:"author" json:"author"`
	OGImage    OGImage  `yaml:"ogImage" json:"ogImage"`
	Tags       []string `yaml:"tags" json:"tags,omitempty"`
	Draft      bool     `yaml:"draft" json:"draft,omitempty"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Time parses Date. ok is false when Date is empty or not a known layout.
func (f FrontMatter) Time() (t time.Time, ok bool) {
	date := strings.TrimSpace(f.Date)
	if date == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Doc is one row of the sidebar tree: the root, a folder, or a page.
type Doc struct {
	Path  []string `json:"path"`
	Label string   `json:"label"`
	Type  DocType  `json:"type"`

	// Page fields, set on files and on folders with an index file. Slug is
	// the content-relative path without the .md extension; Source is the
	// content-relative file name.
	Slug    string      `json:"slug,omitempty"`
	Source  string      `json:"source,omitempty"`
	Matter  FrontMatter `json:"matter"`
	Body    []byte      `json:"-"`
	ModTime time.Time   `json:"mod_time"`
}

// ItemPath implements treeview.Item.
func (d Doc) ItemPath() []string { return d.Path }

// Key returns the slash-joined path.
func (d Doc) Key() string { return strings.Join(d.Path, "/") }

// Route is the site URL path of the row.
func (d Doc) Route() string { return "/" + d.Key() }

// IsFolder reports whether the row stands for a directory.
func (d Doc) IsFolder() bool { return d.Type == DocFolder || d.Type == DocRoot }

// IsPage reports whether the row has a markdown source and therefore a
// rendered page. Folders get one from their index file.
func (d Doc) IsPage() bool { return d.Source != "" }

// Title is the front matter title, falling back to the label.
func (d Doc) Title() string {
	if d.Matter.Title != "" {
		return d.Matter.Title
	}
	return d.Label
}

// Validate checks the structural fields.
func (d Doc) Validate() error {
	if len(d.Path) == 0 {
		return errors.New("doc has an empty path")
	}
	for i, seg := range d.Path {
		if seg == "" {
			return fmt.Errorf("doc %q: empty path segment at %d", d.Key(), i)
		}
		if strings.Contains(seg, "/") {
			return fmt.Errorf("doc %q: segment %q contains '/'", d.Key(), seg)
		}
	}
	switch d.Type {
	case DocRoot, DocFolder, DocFile:
	default:
		return fmt.Errorf("doc %q: unknown type %q", d.Key(), d.Type)
	}
	return nil
}

// Field names accepted by Fields.
const (
	FieldSlug       = "slug"
	FieldContent    = "content"
	FieldTitle      = "title"
	FieldDate       = "date"
	FieldAuthor     = "author"
	FieldExcerpt    = "excerpt"
	FieldCoverImage = "coverImage"
	FieldOGImage    = "ogImage"
	FieldRoute      = "route"
)

// Fields returns only the named fields of a page. Unknown names and empty
// values are left out.
func (d Doc) Fields(names ...string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		var v any
		switch name {
		case FieldSlug:
			v = d.Slug
		case FieldContent:
			v = string(d.Body)
		case FieldTitle:
			v = d.Matter.Title
		case FieldDate:
			v = d.Matter.Date
		case FieldExcerpt:
			v = d.Matter.Excerpt
		case FieldCoverImage:
			v = d.Matter.CoverImage
		case FieldRoute:
			v = d.Route()
		case FieldAuthor:
			if d.Matter.Author != (Author{}) {
				v = d.Matter.Author
			}
		case FieldOGImage:
			if d.Matter.OGImage.URL != "" {
				v = d.Matter.OGImage
			}
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if v != nil {
			out[name] = v
		}
	}
	return out
}

// LabelComparator returns a locale-aware label comparison for sibling
// ordering. The collator it wraps is not safe for concurrent use, so each
// tree engine should get its own.
func LabelComparator() func(a, b Doc) int {
	c := collate.New(language.Und, collate.Loose)
	return func(a, b Doc) int {
		return c.CompareString(a.Label, b.Label)
	}
}
