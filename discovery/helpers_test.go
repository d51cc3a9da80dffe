package discovery

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// Test helper: one well-formed listing article
func articleHTML(title string) string {
	return fmt.Sprintf(`
	<article class="post">
		<header class="entry-header">
			<h1 class="entry-title"><a href="https://example.com/game/">%s</a></h1>
			<div class="entry-meta">
				<span class="entry-date"><a href="#"><time class="entry-date" datetime="2024-05-01T12:00:00+00:00">May 1, 2024</time></a></span>
				<span class="cat-links"><a href="#">Lossless Repack</a>, <a href="#">Action</a></span>
			</div>
		</header>
		<div class="entry-content">
			<p>Genres/Tags: <strong>Action, RPG</strong><br>
			Companies: <strong>Studio A, Studio B</strong><br>
			Languages: <strong>ENG/RUS/MULTI</strong><br>
			Original Size: <strong>20.1 GB</strong><br>
			Repack Size: <strong>from 9.8 GB</strong></p>
			<h3>Download Mirrors</h3>
			<p>Pick one:</p>
			<ul>
				<li><a href="magnet:?xt=urn:btih:first">magnet</a></li>
				<li><a href="https://mirror.example.com/second">mirror</a></li>
				<li><a>no target</a></li>
			</ul>
			<h3>Screenshots</h3>
			<p><img src="https://img.example.com/1.jpg"><img src="https://img.example.com/2.jpg"></p>
			<h3>Repack Features</h3>
			<ul>
				<li>Based on ISO release</li>
				<li>100%% Lossless</li>
			</ul>
		</div>
	</article>`, title)
}

// Test helper: an article whose content has no metadata paragraph
func bareArticleHTML(title string) string {
	return fmt.Sprintf(`
	<article>
		<h1 class="entry-title">%s</h1>
		<div class="entry-content"><div>Nothing structured here.</div></div>
	</article>`, title)
}

// Test helper: pagination control with the given link texts
func paginationHTML(links ...string) string {
	var b strings.Builder
	b.WriteString(`<div class="pagination">`)
	for _, link := range links {
		fmt.Fprintf(&b, `<a href="#">%s</a>`, link)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// Test helper: wrap fragments into a full page
func pageHTML(fragments ...string) string {
	return "<html><head><title>Listing</title></head><body>" + strings.Join(fragments, "\n") + "</body></html>"
}

// Test helper: parse HTML into a document
func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
