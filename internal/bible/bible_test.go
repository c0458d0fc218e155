package bible

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const sample = "Matthäus\tMt\t40\t3\t15\tJesus aber antwortete.\n" +
	"Matthäus\tMt\t40\t3\t16\tDa aber Jesus getauft war.\n" +
	"Matthäus\tMt\t40\t3\t17\tUnd siehe, eine Stimme.\n" +
	"Lukas\tLk\t42\t1\t3\tSo habe auch ich beschlossen.\n"

func mustParse(t *testing.T, s string) *Bible {
	t.Helper()
	b, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return b
}

func TestParse(t *testing.T) {
	b := mustParse(t, sample+"\n")
	assert.Equal(t, 4, b.Len())

	_, err := Parse(strings.NewReader("Mt\t40\t3\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("Matthäus\tMt\tx\t3\t1\ttext\n"))
	assert.Error(t, err)
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		in   string
		want Reference
	}{
		{"Mt 3, 16-17", Reference{Book: "Mt", Chapter: 3, Start: 16, End: 17}},
		{"Mt3:16-17", Reference{Book: "Mt", Chapter: 3, Start: 16, End: 17}},
		{"Lk1:3", Reference{Book: "Lk", Chapter: 1, Start: 3, End: 3}},
		{"Matthäus 3, 16-17", Reference{Book: "Matthäus", FullName: true, Chapter: 3, Start: 16, End: 17}},
		{"Lukas 1:3", Reference{Book: "Lukas", Chapter: 1, Start: 3, End: 3}},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := ParseReference(test.in)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}

	for _, bad := range []string{"", "Mt", "3:16", "Mt 3", "Mt 3:16-"} {
		_, err := ParseReference(bad)
		assert.ErrorIs(t, err, ErrInvalidReference, bad)
	}
}

func TestLookup(t *testing.T) {
	b := mustParse(t, sample)

	p, err := b.Lookup("Mt 3, 16-17")
	require.NoError(t, err)
	assert.Equal(t, "Matthäus", p.Book)
	assert.Equal(t, 3, p.Chapter)
	assert.Equal(t, []PassageVerse{
		{Verse: 16, Text: "Da aber Jesus getauft war."},
		{Verse: 17, Text: "Und siehe, eine Stimme."},
	}, p.Verses)

	p, err = b.Lookup("Matthäus 3:15")
	require.NoError(t, err)
	assert.Len(t, p.Verses, 1)

	_, err = b.Lookup("Lk 2:1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = b.Lookup("nonsense")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestRandom(t *testing.T) {
	b := mustParse(t, sample)

	q, err := b.Random(func(n int) int { return n - 1 })
	require.NoError(t, err)
	assert.Equal(t, "Lukas 1:3", q.Reference)
	assert.Equal(t, 3, q.Verse)

	q, err = b.Random(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, q.Text)

	_, err = (&Bible{}).Random(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLibraryReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "bible.tsv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lib, err := NewLibrary(path, logger)
	require.NoError(t, err)
	lib.debounce = 20 * time.Millisecond
	assert.Equal(t, 4, lib.Bible().Len())

	require.NoError(t, lib.Start(context.Background()))
	require.NoError(t, lib.Start(context.Background()))

	more := sample + "Lukas\tLk\t42\t1\t4\tDamit du erkennst.\n"
	require.NoError(t, os.WriteFile(path, []byte(more), 0o644))

	assert.Eventually(t, func() bool { return lib.Bible().Len() == 5 }, 3*time.Second, 20*time.Millisecond)

	lib.Stop()
	lib.Stop()
}

func TestLibraryKeepsPreviousOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bible.tsv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	lib, err := NewLibrary(path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("broken\n"), 0o644))
	assert.Error(t, lib.Reload())
	assert.Equal(t, 4, lib.Bible().Len())

	_, err = NewLibrary(filepath.Join(dir, "missing.tsv"), nil)
	assert.Error(t, err)
}
