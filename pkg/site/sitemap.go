package site

import (
	"encoding/xml"
	"strings"

	"github.com/vanderheijden86/marktree/pkg/model"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	NS      string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap lists every page. Locations are absolute when baseURL is set.
// lastmod comes from the front matter date, else the file time.
func Sitemap(baseURL string, pages []model.Doc) ([]byte, error) {
	set := urlSet{NS: sitemapNS}
	base := strings.TrimSuffix(baseURL, "/")
	for _, p := range pages {
		u := sitemapURL{Loc: base + RouteURL(p.Route()) + "/"}
		if t, ok := p.Matter.Time(); ok {
			u.LastMod = t.Format("2006-01-02")
		} else if !p.ModTime.IsZero() {
			u.LastMod = p.ModTime.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
