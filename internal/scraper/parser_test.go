package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

func TestParsePageExtractsItems(t *testing.T) {
	t.Parallel()

	body := pageHTML(
		itemHTML("Stalker", "8.6", "2024-03-01 10:00:00"),
		itemHTML("Solaris", "8.1", "2024-02-01 10:00:00"),
	)
	page, err := ParsePage([]byte(body))
	require.NoError(t, err)
	require.Empty(t, page.Malformed)

	want := []movie.Item{
		{
			Title:    "Stalker",
			Rating:   "8.6",
			Image:    "https://img.example/Stalker.jpg",
			Abstract: "导演: Someone\n主演: Stalker\n类型: 剧情",
			Time:     "2024-03-01 10:00:00",
		},
		{
			Title:    "Solaris",
			Rating:   "8.1",
			Image:    "https://img.example/Solaris.jpg",
			Abstract: "导演: Someone\n主演: Solaris\n类型: 剧情",
			Time:     "2024-02-01 10:00:00",
		},
	}
	if diff := cmp.Diff(want, page.Items); diff != "" {
		t.Fatalf("parsed items mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, page.Containers())
}

func TestParsePageSkipsMalformedItems(t *testing.T) {
	t.Parallel()

	body := pageHTML(
		itemHTML("First", "7.0", "2024-01-01 00:00:00"),
		malformedItemHTML("Broken"),
		itemHTML("Third", "6.5", "2024-01-03 00:00:00"),
	)
	page, err := ParsePage([]byte(body))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Len(t, page.Malformed, 1)
	assert.ErrorIs(t, page.Malformed[0], ErrMalformedItem)
	assert.Contains(t, page.Malformed[0].Error(), "Broken")
	assert.Equal(t, 3, page.Containers())
}

func TestParsePageWithoutItems(t *testing.T) {
	t.Parallel()

	page, err := ParsePage([]byte(pageHTML(`<p>没有更多了</p>`)))
	require.NoError(t, err)
	assert.Zero(t, page.Containers())
}

func TestParseItemOptionalParts(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<div class="doulist-item">
  <div class="title"><a>  Untitled Short  </a></div>
  <div class="actions"><span>no time here</span></div>
</div>`))
	require.NoError(t, err)

	item, err := ParseItem(doc.Find("div.doulist-item"))
	require.NoError(t, err)
	assert.Equal(t, movie.Item{Title: "Untitled Short"}, item)
}

func TestParseItemPosterWithoutSrcIsMalformed(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<div class="doulist-item">
  <div class="post"><img alt="poster"></div>
  <div class="actions"><time class="time">2024-01-01</time></div>
</div>`))
	require.NoError(t, err)

	_, err = ParseItem(doc.Find("div.doulist-item"))
	require.ErrorIs(t, err, ErrMalformedItem)
}

func TestStrippedStringsIncludesNestedText(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div class="abstract"> a <b> b </b><!-- hidden -->  <span>c</span>   </div>`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, strippedStrings(doc.Find("div.abstract")))
}
