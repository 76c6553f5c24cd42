package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/stretchr/testify/require"
)

func samplePage(ids ...int) domain.Page {
	p := domain.Page{Total: 25}
	for _, id := range ids {
		p.Records = append(p.Records, domain.VideoRecord{
			ID:          id,
			Title:       "clip",
			Tags:        []string{"sea", "dogs"},
			ViewCount:   id * 10,
			PublishedAt: time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC),
		})
	}
	return p
}

func TestCatalogStore_MemoryOnly(t *testing.T) {
	s, err := NewCatalogStore("", "")
	require.NoError(t, err)
	defer s.Close()

	_, _, ok := s.GetVocabulary()
	require.False(t, ok)

	require.NoError(t, s.SaveVocabulary([]string{"a", "b"}))
	tags, savedAt, ok := s.GetVocabulary()
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, tags)
	require.False(t, savedAt.IsZero())

	require.NoError(t, s.SavePage(0, 10, samplePage(1, 2)))
	page, ok := s.GetPage(0, 10)
	require.True(t, ok)
	require.Len(t, page.Records, 2)
	require.Equal(t, 25, page.Total)
	require.Equal(t, 2, page.Received, "received defaults to the record count")

	_, ok = s.GetPage(10, 10)
	require.False(t, ok)
}

func TestCatalogStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	base := "https://example.test/api/v1"

	s, err := NewCatalogStore(dir, base)
	require.NoError(t, err)
	require.NoError(t, s.SaveVocabulary([]string{"sea", "mountains"}))
	require.NoError(t, s.SavePage(10, 10, samplePage(11, 12, 13)))
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, hashBaseURL(base), "reel.db"))
	require.NoError(t, err)

	s, err = NewCatalogStore(dir, base)
	require.NoError(t, err)
	defer s.Close()

	tags, _, ok := s.GetVocabulary()
	require.True(t, ok)
	require.Equal(t, []string{"sea", "mountains"}, tags)

	page, ok := s.GetPage(10, 10)
	require.True(t, ok)
	require.Len(t, page.Records, 3)
	require.Equal(t, 11, page.Records[0].ID)
	require.Equal(t, []string{"sea", "dogs"}, page.Records[0].Tags)
	require.True(t, page.Records[0].PublishedAt.Equal(samplePage(1).Records[0].PublishedAt))
}

func TestCatalogStore_Invalidation(t *testing.T) {
	s, err := NewCatalogStore(t.TempDir(), "https://example.test")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveVocabulary([]string{"x"}))
	for offset := 0; offset < 30; offset += 10 {
		require.NoError(t, s.SavePage(offset, 10, samplePage(offset+1)))
	}

	s.InvalidatePages()
	for offset := 0; offset < 30; offset += 10 {
		_, ok := s.GetPage(offset, 10)
		require.False(t, ok, "page at offset %d survived InvalidatePages", offset)
	}
	_, _, ok := s.GetVocabulary()
	require.True(t, ok, "vocabulary should survive InvalidatePages")

	// Buckets are usable after being cleared
	require.NoError(t, s.SavePage(0, 10, samplePage(1)))

	s.InvalidateAll()
	_, _, ok = s.GetVocabulary()
	require.False(t, ok)
	_, ok = s.GetPage(0, 10)
	require.False(t, ok)
}

func TestHashBaseURL_Normalizes(t *testing.T) {
	require.Equal(t, hashBaseURL("https://Example.test/api/"), hashBaseURL("https://example.test/api"))
	require.NotEqual(t, hashBaseURL("https://a.test"), hashBaseURL("https://b.test"))
}
