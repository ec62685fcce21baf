package normalize_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/mock"
	"github.com/fwojciec/wikifuse/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onePieceConfig() *wikifuse.SourceConfig {
	return &wikifuse.SourceConfig{
		Key: "onepiece",
		Rules: []wikifuse.SelectorRule{
			{Field: "name", Selector: "h1", PostProcess: "clean_character_name"},
			{Field: "birthday", Selector: ".birthday"},
			{Field: "abilities", Selector: ".abilities li", Mode: wikifuse.ModeList},
			{Field: "affiliation", Selector: ".affiliation"},
			{Field: "relatives", Selector: ".relatives li", Mode: wikifuse.ModeList},
			{Field: "bounty", Selector: ".bounty", PostProcess: "parse_bounty"},
			{Field: "image", Selector: "img", Mode: wikifuse.ModeAttribute, Attribute: "src", PostProcess: "absolute_url"},
		},
		Fields: []wikifuse.FieldSpec{
			{Name: "birthday", Type: wikifuse.FieldDate},
			{Name: "affiliation", Type: wikifuse.FieldAlias},
			{Name: "relatives", Type: wikifuse.FieldMap},
		},
		Aliases: map[string]map[string][]string{
			"affiliation": {"Straw Hat Pirates": {"Straw Hats", "Mugiwara Pirates"}},
		},
	}
}

func rawRecord(fields map[string]wikifuse.Value) *wikifuse.RawRecord {
	return &wikifuse.RawRecord{
		Fields: fields,
		Provenance: wikifuse.Provenance{
			SourceURL: "https://onepiece.fandom.com/wiki/Monkey_D._Luffy",
			SourceKey: "onepiece",
			FetchedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	t.Parallel()

	t.Run("normalizes every field type", func(t *testing.T) {
		t.Parallel()

		raw := rawRecord(map[string]wikifuse.Value{
			"name":        wikifuse.Text("Monkey D. Luffy (character)"),
			"birthday":    wikifuse.Text("May 5, 1997"),
			"abilities":   wikifuse.List("Haki[1]", " haki ", "Gear  Fifth", "N/A"),
			"affiliation": wikifuse.Text("straw hats"),
			"relatives":   wikifuse.List("father: Monkey D. Dragon", "grandfather: Monkey D. Garp"),
			"bounty":      wikifuse.Text("3,000,000,000 (current); 1,500,000,000"),
			"image":       wikifuse.Text("/images/luffy.png"),
		})

		rec, err := normalize.NewNormalizer().Normalize(raw, onePieceConfig())

		require.NoError(t, err)
		assert.Equal(t, wikifuse.Text("Monkey D. Luffy"), rec.Get("name"))
		assert.Equal(t, wikifuse.KindDate, rec.Get("birthday").Kind)
		assert.Equal(t, "1997-05-05", rec.Get("birthday").Text)
		assert.Equal(t, wikifuse.List("Haki", "Gear Fifth"), rec.Get("abilities"))
		assert.Equal(t, wikifuse.Text("Straw Hat Pirates"), rec.Get("affiliation"))
		assert.Equal(t, wikifuse.Map(map[string]string{
			"Father":      "Monkey D. Dragon",
			"Grandfather": "Monkey D. Garp",
		}), rec.Get("relatives"))
		assert.Equal(t, wikifuse.Text("3000000000"), rec.Get("bounty"))
		assert.Equal(t, wikifuse.Text("https://onepiece.fandom.com/images/luffy.png"), rec.Get("image"))
		assert.Equal(t, wikifuse.EntityKey("onepiece/monkey-d-luffy"), rec.EntityKey)
		assert.Equal(t, raw.SourceURL, rec.SourceURL)
		assert.Empty(t, rec.RawValues)
	})

	t.Run("unparsable date is absent and kept in provenance", func(t *testing.T) {
		t.Parallel()

		raw := rawRecord(map[string]wikifuse.Value{
			"name":     wikifuse.Text("Monkey D. Luffy"),
			"birthday": wikifuse.Text("sometime in spring"),
		})

		rec, err := normalize.NewNormalizer().Normalize(raw, onePieceConfig())

		require.NoError(t, err)
		assert.True(t, rec.Get("birthday").IsAbsent())
		assert.Equal(t, "sometime in spring", rec.RawValues["birthday"])
	})

	t.Run("absent identity leaves the entity key empty", func(t *testing.T) {
		t.Parallel()

		raw := rawRecord(map[string]wikifuse.Value{"name": wikifuse.Text("Unknown")})

		rec, err := normalize.NewNormalizer().Normalize(raw, onePieceConfig())

		require.NoError(t, err)
		assert.Empty(t, rec.EntityKey)
	})

	t.Run("identity resolves through its alias table before keying", func(t *testing.T) {
		t.Parallel()

		cfg := onePieceConfig()
		cfg.Fields = append(cfg.Fields, wikifuse.FieldSpec{Name: "name", Type: wikifuse.FieldText})
		cfg.Aliases["name"] = map[string][]string{"Monkey D. Luffy": {"Straw Hat Luffy"}}

		rec, err := normalize.NewNormalizer().Normalize(rawRecord(map[string]wikifuse.Value{
			"name": wikifuse.Text("Straw Hat Luffy"),
		}), cfg)

		require.NoError(t, err)
		assert.Equal(t, wikifuse.EntityKey("onepiece/monkey-d-luffy"), rec.EntityKey)
		assert.Equal(t, wikifuse.Text("Monkey D. Luffy"), rec.Get("name"))
	})

	t.Run("unknown field type is a schema error", func(t *testing.T) {
		t.Parallel()

		cfg := onePieceConfig()
		cfg.Fields = append(cfg.Fields, wikifuse.FieldSpec{Name: "height", Type: "length"})

		_, err := normalize.NewNormalizer().Normalize(rawRecord(nil), cfg)

		assert.Equal(t, wikifuse.ESCHEMA, wikifuse.ErrorCode(err))
	})

	t.Run("unknown transform is a schema error", func(t *testing.T) {
		t.Parallel()

		cfg := onePieceConfig()
		cfg.Rules[0].PostProcess = "clean_character_name, shout"

		err := normalize.NewNormalizer().Validate(cfg)

		assert.Equal(t, wikifuse.ESCHEMA, wikifuse.ErrorCode(err))
	})

	t.Run("custom field rule", func(t *testing.T) {
		t.Parallel()

		cfg := onePieceConfig()
		cfg.Fields = append(cfg.Fields, wikifuse.FieldSpec{Name: "name", Type: "upper"})
		n := normalize.NewNormalizer(normalize.WithFieldRule("upper",
			func(v wikifuse.Value, _ wikifuse.FieldSpec, _ *wikifuse.SourceConfig) (wikifuse.Value, string) {
				return wikifuse.Text("LUFFY"), ""
			}))

		rec, err := n.Normalize(rawRecord(map[string]wikifuse.Value{"name": wikifuse.Text("Luffy")}), cfg)

		require.NoError(t, err)
		assert.Equal(t, wikifuse.Text("LUFFY"), rec.Get("name"))
	})

	t.Run("markdown transform uses the converter", func(t *testing.T) {
		t.Parallel()

		cfg := onePieceConfig()
		cfg.Rules = append(cfg.Rules, wikifuse.SelectorRule{Field: "description", Selector: "p", Mode: wikifuse.ModeHTML, PostProcess: "markdown"})
		conv := &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				if html == "<b>bad</b>" {
					return "", errors.New("boom")
				}
				return "**Captain**\n", nil
			},
		}
		n := normalize.NewNormalizer(normalize.WithConverter(conv))

		rec, err := n.Normalize(rawRecord(map[string]wikifuse.Value{
			"name":        wikifuse.Text("Luffy"),
			"description": wikifuse.Text("<b>Captain</b>"),
		}), cfg)

		require.NoError(t, err)
		assert.Equal(t, wikifuse.Text("**Captain**"), rec.Get("description"))
	})
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Monkey   D.\n Luffy ", "Monkey D. Luffy"},
		{"Captain[1] of the crew[citation needed].", "Captain of the crew."},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"Luffy {{nihongo|Rufi}} ()", "Luffy"},
		{"ｆｕｌｌｗｉｄｔｈ", "fullwidth"},
		{"Captain[a] of the crew[Note 2]", "Captain of the crew"},
		{"Group [A] member", "Group [A] member"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize.CleanText(tt.in), tt.in)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"1997-03-05", "1997-03-05"},
		{"1997-03-05T10:00:00Z", "1997-03-05"},
		{"March 5, 1997", "1997-03-05"},
		{"March 5th, 1997", "1997-03-05"},
		{"March 5 1997", "1997-03-05"},
		{"Mar 5, 1997", "1997-03-05"},
		{"Mar 5 1997", "1997-03-05"},
		{"5 March 1997", "1997-03-05"},
		{"5 Mar 1997", "1997-03-05"},
		{"1997/03/05", "1997-03-05"},
		{"05/03/1997", "1997-03-05"},
		{"25/12/1997", "1997-12-25"},
		{"1997.03.05", "1997-03-05"},
		{"January 1997", "1997-01-01"},
		{"Jan 1997", "1997-01-01"},
	}
	for _, tt := range tests {
		got, ok := normalize.ParseDate(tt.in, nil)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got.Format(wikifuse.DateLayout), tt.in)
	}

	t.Run("configured layouts come first", func(t *testing.T) {
		t.Parallel()

		got, ok := normalize.ParseDate("05/04/1997", []string{"01/02/2006"})
		require.True(t, ok)
		assert.Equal(t, "1997-05-04", got.Format(wikifuse.DateLayout))
	})

	t.Run("recognizes timestamps outside the layouts", func(t *testing.T) {
		t.Parallel()

		got, ok := normalize.ParseDate("1997-05-05 14:30:00", nil)
		require.True(t, ok)
		assert.Equal(t, time.Date(1997, 5, 5, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("rejects partial dates", func(t *testing.T) {
		t.Parallel()

		for _, in := range []string{"May 5th", "sometime in spring", "12/25"} {
			_, ok := normalize.ParseDate(in, nil)
			assert.False(t, ok, in)
		}
	})
}

func TestCleanList(t *testing.T) {
	t.Parallel()

	got := normalize.CleanList([]string{"Gomu Gomu no Mi", "", "gomu gomu no mi", "unknown", "Haki"})

	assert.Equal(t, []string{"Gomu Gomu no Mi", "Haki"}, got)
}

func TestAliasTable_Resolve(t *testing.T) {
	t.Parallel()

	table := normalize.NewAliasTable(map[string][]string{"Marines": {"Navy", "World Government Navy"}})

	assert.Equal(t, "Marines", table.Resolve("navy"))
	assert.Equal(t, "Marines", table.Resolve("MARINES"))
	assert.Equal(t, "Revolutionary Army", table.Resolve("Revolutionary Army"))
}

func TestParseRelationships(t *testing.T) {
	t.Parallel()

	got := normalize.ParseRelationships([]string{
		"brother: Portgas D. Ace",
		"Brother: Sabo",
		"brother: sabo",
		"Shanks",
	})

	assert.Equal(t, map[string]string{
		"Brother": "Portgas D. Ace, Sabo",
		"Related": "Shanks",
	}, got)
}

func TestTransforms(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Monkey D. Luffy", normalize.CleanCharacterName("Monkey D. Luffy (character) | One Piece Wiki"))
	assert.Equal(t, "Nami", normalize.CleanCharacterName("Nami"))
	assert.Equal(t, "3000000000", normalize.ParseBounty("3,000,000,000; formerly 1.500.000.000"))
	assert.Empty(t, normalize.ParseBounty("none"))
}

func TestNewEntityKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, wikifuse.EntityKey("onepiece/monkey-d-luffy"), normalize.NewEntityKey("onepiece", "Monkey D. Luffy"))
	assert.Equal(t, wikifuse.EntityKey("onepiece/monkey-d-luffy"), normalize.NewEntityKey("onepiece", "  MONKEY D LUFFY "))
	assert.Equal(t, wikifuse.EntityKey("pokemon/pokemon-trainer"), normalize.NewEntityKey("pokemon", "Pokémon Trainer"))
	assert.Empty(t, normalize.NewEntityKey("onepiece", "???"))
}
