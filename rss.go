package folio

import (
	"context"
	"encoding/xml"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/folio-press/folio/articles"
)

const feedFetchLimit = 8

type rssXML struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	XMLNSAtom string     `xml:"xmlns:atom,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	AtomLink    atomLink  `xml:"atom:link"`
	Items       []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Description string   `xml:"description,omitempty"`
	Categories  []string `xml:"category"`
}

// buildFeed assembles the RSS document for the newest FeedLimit articles.
// Item links prefer the cross-posted original; GUIDs stay on this site.
func (a *App) buildFeed(ctx context.Context, index []articles.IndexItem) rssXML {
	if len(index) > a.Config.FeedLimit {
		index = index[:a.Config.FeedLimit]
	}

	descriptions := make([]string, len(index))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedFetchLimit)
	for i, it := range index {
		g.Go(func() error {
			if art, ok := a.Library.Article(gctx, it.Slug); ok {
				descriptions[i] = ArticleDescription(a.Config, art.Content)
			}
			return nil
		})
	}
	g.Wait()

	items := make([]rssItem, 0, len(index))
	for i, it := range index {
		pageURL := ArticleURL(a.Config, it.Slug)
		link := CanonicalSourceURL(a.Config, it.Slug, it.FrontMatter)
		if link == "" {
			link = pageURL
		}
		pubDate := ""
		if t, ok := articles.ParseDate(it.FrontMatter.Date); ok {
			pubDate = t.UTC().Format(http.TimeFormat)
		}
		items = append(items, rssItem{
			Title:       it.FrontMatter.Title,
			Link:        link,
			GUID:        rssGUID{IsPermaLink: "true", Value: pageURL},
			PubDate:     pubDate,
			Description: descriptions[i],
			Categories:  it.FrontMatter.Topics,
		})
	}

	return rssXML{
		Version:   "2.0",
		XMLNSAtom: "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        a.Config.URL,
			Description: a.Config.Description,
			Language:    a.Config.Language,
			AtomLink: atomLink{
				Href: BuildURL(a.Config.URL, "rss.xml"),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
}
