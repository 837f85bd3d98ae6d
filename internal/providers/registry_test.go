package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubProvider(id string, priority int, kinds ...MediaKind) Provider {
	return NewProvider(id, id, priority, kinds, func(req SourceRequest) (string, error) {
		return "https://" + id + ".example/" + req.ContentID(), nil
	})
}

func TestNewRegistry(t *testing.T) {
	t.Run("empty registry", func(t *testing.T) {
		registry, err := NewRegistry()
		require.NoError(t, err)
		assert.Equal(t, 0, registry.Len())
		assert.Empty(t, registry.All())
	})

	t.Run("prevents duplicate registration", func(t *testing.T) {
		_, err := NewRegistry(
			stubProvider("test", 1, MediaKindMovie),
			stubProvider("test", 2, MediaKindMovie),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("rejects provider without name", func(t *testing.T) {
		_, err := NewRegistry(stubProvider("", 1, MediaKindMovie))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must have a name")
	})

	t.Run("MustRegistry panics on invalid input", func(t *testing.T) {
		assert.Panics(t, func() {
			MustRegistry(stubProvider("", 1))
		})
	})
}

func TestRegistry_Ordering(t *testing.T) {
	registry := MustRegistry(
		stubProvider("c", 3, MediaKindMovie),
		stubProvider("a", 1, MediaKindMovie, MediaKindAnime),
		stubProvider("b1", 2, MediaKindMovie),
		stubProvider("b2", 2, MediaKindSeries),
	)

	assert.Equal(t, []string{"a", "b1", "b2", "c"}, registry.List())
	assert.Equal(t, 4, registry.Len())

	movie := registry.ForKind(MediaKindMovie)
	require.Len(t, movie, 3)
	assert.Equal(t, "a", movie[0].ID)
	assert.Equal(t, "b1", movie[1].ID)
	assert.Equal(t, "c", movie[2].ID)

	anime := registry.ForKind(MediaKindAnime)
	require.Len(t, anime, 1)
	assert.Equal(t, "a", anime[0].ID)
}

func TestRegistry_Get(t *testing.T) {
	registry := MustRegistry(stubProvider("test", 1, MediaKindMovie))

	t.Run("gets existing provider", func(t *testing.T) {
		p, err := registry.Get("test")
		require.NoError(t, err)
		assert.Equal(t, "test", p.ID)
	})

	t.Run("returns error for non-existent provider", func(t *testing.T) {
		_, err := registry.Get("nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestRegistry_Priority(t *testing.T) {
	registry := MustRegistry(stubProvider("test", 7, MediaKindMovie))

	assert.Equal(t, 7, registry.Priority("test"))
	assert.Equal(t, UnrankedPriority, registry.Priority("p-stream"))
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	registry := MustRegistry(
		stubProvider("a", 1, MediaKindMovie),
		stubProvider("b", 2, MediaKindMovie),
	)

	all := registry.All()
	all[0], all[1] = all[1], all[0]
	forKind := registry.ForKind(MediaKindMovie)
	forKind[0] = Provider{}

	assert.Equal(t, []string{"a", "b"}, registry.List())
	assert.Equal(t, "a", registry.ForKind(MediaKindMovie)[0].ID)
}

func TestRegistry_SortByPriority(t *testing.T) {
	registry := MustRegistry(
		stubProvider("vidplus", 1, MediaKindMovie),
		stubProvider("vidnest", 2, MediaKindMovie),
	)

	sources := []VideoSource{
		{ID: "x-0", Provider: "upstream-x"},
		{ID: "vidnest-embed", Provider: "vidnest"},
		{ID: "y-1", Provider: "upstream-y"},
		{ID: "vidplus-embed", Provider: "vidplus"},
	}
	registry.SortByPriority(sources)

	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"vidplus-embed", "vidnest-embed", "x-0", "y-1"}, ids)
}
