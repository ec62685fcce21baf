package wikifuse_test

import (
	"testing"

	"github.com/fwojciec/wikifuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewURLFilter(t *testing.T) {
	t.Parallel()

	t.Run("nil without patterns", func(t *testing.T) {
		t.Parallel()

		f, err := wikifuse.NewURLFilter(nil)
		require.NoError(t, err)
		assert.Nil(t, f)
		assert.True(t, f.Match("https://example.com/anything"))
	})

	t.Run("matches include patterns", func(t *testing.T) {
		t.Parallel()

		f, err := wikifuse.NewURLFilter([]string{`/wiki/[^:]+$`})
		require.NoError(t, err)
		assert.True(t, f.Match("https://onepiece.fandom.com/wiki/Monkey_D._Luffy"))
		assert.False(t, f.Match("https://onepiece.fandom.com/wiki/Category:Pirates"))
	})

	t.Run("invalid pattern is a config error", func(t *testing.T) {
		t.Parallel()

		_, err := wikifuse.NewURLFilter([]string{"("})
		assert.Equal(t, wikifuse.ECONFIG, wikifuse.ErrorCode(err))

		_, err = wikifuse.NewURLFilter(nil, "[")
		assert.Equal(t, wikifuse.ECONFIG, wikifuse.ErrorCode(err))
	})

	t.Run("exclude wins over include", func(t *testing.T) {
		t.Parallel()

		f, err := wikifuse.NewURLFilter([]string{`/wiki/`}, `/wiki/Nami/Gallery$`)
		require.NoError(t, err)
		assert.True(t, f.Match("https://onepiece.fandom.com/wiki/Nami"))
		assert.False(t, f.Match("https://onepiece.fandom.com/wiki/Nami/Gallery"))
	})
}

func TestNamespacePatterns(t *testing.T) {
	t.Parallel()

	f, err := wikifuse.NewURLFilter(nil, wikifuse.NamespacePatterns...)
	require.NoError(t, err)

	for _, u := range []string{
		"https://onepiece.fandom.com/wiki/Monkey_D._Luffy",
		"https://naruto.fandom.com/wiki/Sakura_Haruno",
		"https://onepiece.fandom.com/wiki/Straw_Hat_Pirates",
	} {
		assert.True(t, f.Match(u), u)
	}
	for _, u := range []string{
		"https://onepiece.fandom.com/wiki/Talk:Monkey_D._Luffy",
		"https://onepiece.fandom.com/wiki/User_talk:Someone",
		"https://onepiece.fandom.com/wiki/File:Luffy.png",
		"https://onepiece.fandom.com/wiki/Category:Characters",
		"https://onepiece.fandom.com/wiki/Special:Random",
		"https://onepiece.fandom.com/wiki/Nami?action=history",
		"https://onepiece.fandom.com/wiki/Nami?oldid=42",
	} {
		assert.False(t, f.Match(u), u)
	}
}
