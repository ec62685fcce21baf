package wikifuse_test

import (
	"testing"
	"time"

	"github.com/fwojciec/wikifuse"
	"github.com/stretchr/testify/assert"
)

func TestValue_Constructors(t *testing.T) {
	t.Parallel()

	t.Run("empty inputs are absent", func(t *testing.T) {
		t.Parallel()

		assert.True(t, wikifuse.Text("").IsAbsent())
		assert.True(t, wikifuse.List().IsAbsent())
		assert.True(t, wikifuse.Map(nil).IsAbsent())
	})

	t.Run("date uses ISO calendar layout", func(t *testing.T) {
		t.Parallel()

		v := wikifuse.Date(time.Date(1997, time.May, 5, 13, 0, 0, 0, time.UTC))

		assert.Equal(t, wikifuse.KindDate, v.Kind)
		assert.Equal(t, "1997-05-05", v.Text)
		got, ok := v.Time()
		assert.True(t, ok)
		assert.Equal(t, 1997, got.Year())
	})

	t.Run("list copies its input", func(t *testing.T) {
		t.Parallel()

		items := []string{"a", "b"}
		v := wikifuse.List(items...)
		items[0] = "changed"

		assert.Equal(t, []string{"a", "b"}, v.List)
	})
}

func TestValue_Len(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, wikifuse.Absent().Len())
	assert.Equal(t, 5, wikifuse.Text("Rüfus").Len())
	assert.Equal(t, 2, wikifuse.List("x", "y").Len())
	assert.Equal(t, 1, wikifuse.Map(map[string]string{"Father": "Dragon"}).Len())
}

func TestValue_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, wikifuse.Text("19").Equal(wikifuse.Text("19")))
	assert.False(t, wikifuse.Text("19").Equal(wikifuse.Text("17")))
	assert.False(t, wikifuse.Text("x").Equal(wikifuse.List("x")))
	assert.True(t, wikifuse.Map(map[string]string{"a": "1", "b": "2"}).
		Equal(wikifuse.Map(map[string]string{"b": "2", "a": "1"})))
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "x, y", wikifuse.List("x", "y").String())
	assert.Equal(t, "Brother: Ace; Father: Dragon",
		wikifuse.Map(map[string]string{"Father": "Dragon", "Brother": "Ace"}).String())
	assert.Empty(t, wikifuse.Absent().String())
}

func TestValueKind_Text(t *testing.T) {
	t.Parallel()

	b, err := wikifuse.KindList.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "list", string(b))

	var k wikifuse.ValueKind
	assert.NoError(t, k.UnmarshalText([]byte("date")))
	assert.Equal(t, wikifuse.KindDate, k)
}

func TestEntityKey_SourceKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "onepiece", wikifuse.EntityKey("onepiece/monkey-d-luffy").SourceKey())
}
