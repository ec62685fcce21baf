package goquery_test

import (
	"testing"

	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `<!DOCTYPE html>
<html>
<body>
<div class="category-page__members">
	<a class="category-page__member-link" href="/wiki/Monkey_D._Luffy">Monkey D. Luffy</a>
	<a class="category-page__member-link" href="/wiki/Roronoa_Zoro#History">Roronoa Zoro</a>
	<a class="category-page__member-link" href="/wiki/Roronoa_Zoro">Roronoa Zoro</a>
	<a class="category-page__member-link" href="https://evil.example.com/wiki/Nami">Nami</a>
	<a class="category-page__member-link" href="javascript:void(0)">Broken</a>
</div>
<div class="category-page__pagination">
	<a class="category-page__pagination-next" href="/wiki/Category:Characters?from=N">Next</a>
</div>
</body>
</html>`

func TestLinkExtractor_ExtractLinks(t *testing.T) {
	t.Parallel()

	cfg := &wikifuse.SourceConfig{
		Key:            "onepiece",
		AllowedDomains: []string{"fandom.com"},
		LinkSelector:   ".category-page__member-link",
		Pagination:     ".category-page__pagination-next",
	}
	page := &wikifuse.Page{URL: "https://onepiece.fandom.com/wiki/Category:Characters", Content: listingPage}

	t.Run("returns pagination and entity links in the allowed domains", func(t *testing.T) {
		t.Parallel()

		links, err := goquery.NewLinkExtractor().ExtractLinks(page, cfg)

		require.NoError(t, err)
		require.Len(t, links, 3)

		assert.Equal(t, "https://onepiece.fandom.com/wiki/Category:Characters?from=N", links[0].URL)
		assert.Equal(t, wikifuse.PriorityPagination, links[0].Priority)
		assert.Equal(t, "pagination", links[0].Source)

		assert.Equal(t, "https://onepiece.fandom.com/wiki/Monkey_D._Luffy", links[1].URL)
		assert.Equal(t, wikifuse.PriorityEntity, links[1].Priority)
		assert.Equal(t, "Monkey D. Luffy", links[1].Text)

		assert.Equal(t, "https://onepiece.fandom.com/wiki/Roronoa_Zoro", links[2].URL)
	})

	t.Run("no selectors yields no links", func(t *testing.T) {
		t.Parallel()

		links, err := goquery.NewLinkExtractor().ExtractLinks(page, &wikifuse.SourceConfig{Key: "bare"})

		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestExtractLinksWithConfigs(t *testing.T) {
	t.Parallel()

	t.Run("keeps the highest priority for duplicates", func(t *testing.T) {
		t.Parallel()

		content := `<html><body>
<a class="member" href="/wiki/Nami">Nami</a>
<a class="next" href="/wiki/Nami">Nami again</a>
</body></html>`
		configs := []goquery.SelectorConfig{
			{Selector: ".member", Priority: wikifuse.PriorityEntity, Source: "entity"},
			{Selector: ".next", Priority: wikifuse.PriorityPagination, Source: "pagination"},
		}

		links, err := goquery.ExtractLinksWithConfigs(content, "https://onepiece.fandom.com/wiki/List", configs)

		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, wikifuse.PriorityPagination, links[0].Priority)
	})

	t.Run("follows anchors inside matched containers", func(t *testing.T) {
		t.Parallel()

		content := `<html><body><li class="member"><a href="/wiki/Usopp">Usopp</a></li></body></html>`
		configs := []goquery.SelectorConfig{{Selector: ".member", Priority: wikifuse.PriorityEntity}}

		links, err := goquery.ExtractLinksWithConfigs(content, "https://onepiece.fandom.com/wiki/List", configs)

		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "https://onepiece.fandom.com/wiki/Usopp", links[0].URL)
	})

	t.Run("filters self-referential anchor links", func(t *testing.T) {
		t.Parallel()

		content := `<html><body><a class="member" href="#top">Top</a></body></html>`
		configs := []goquery.SelectorConfig{{Selector: ".member", Priority: wikifuse.PriorityEntity}}

		links, err := goquery.ExtractLinksWithConfigs(content, "https://onepiece.fandom.com/wiki/List", configs)

		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("returns error for invalid base URL", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.ExtractLinksWithConfigs(listingPage, "://bad", nil)

		assert.Equal(t, wikifuse.EINVALID, wikifuse.ErrorCode(err))
	})
}
