// Package bible serves verses from a tab separated Bible text.
package bible

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/homestead/homestead/internal/model"
)

var (
	ErrInvalidReference = errors.New("invalid bible reference")
	ErrNotFound         = errors.New("no verses found for reference")
	ErrEmpty            = errors.New("bible contains no verses")
)

// Book tokens longer than this are matched against full book names.
const maxAbbreviationLength = 5

var referencePattern = regexp.MustCompile(`^([A-Za-zäöüÄÖÜß]+)\s*(\d+)[\s,:]+(\d+)(?:[-:](\d+))?$`)

// Bible is an immutable, parsed verse list.
type Bible struct {
	verses []model.Verse
}

// Parse reads rows of book, abbreviation, book number, chapter, verse and text.
func Parse(r io.Reader) (*Bible, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var verses []model.Verse
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(row) == "" {
			continue
		}
		fields := strings.SplitN(row, "\t", 6)
		if len(fields) < 6 {
			return nil, fmt.Errorf("line %d: expected 6 columns, got %d", line, len(fields))
		}

		bookNo, err1 := strconv.Atoi(fields[2])
		chapter, err2 := strconv.Atoi(fields[3])
		verse, err3 := strconv.Atoi(fields[4])
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		verses = append(verses, model.Verse{
			Book:         fields[0],
			Abbreviation: fields[1],
			BookNumber:   bookNo,
			Chapter:      chapter,
			Verse:        verse,
			Text:         fields[5],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bible: %w", err)
	}

	return &Bible{verses: verses}, nil
}

// Load parses the file at path.
func Load(path string) (*Bible, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bible: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Len returns the number of verses.
func (b *Bible) Len() int {
	return len(b.verses)
}

// Reference is a parsed citation such as "Mt 3, 16-17".
type Reference struct {
	Book     string
	FullName bool
	Chapter  int
	Start    int
	End      int
}

// ParseReference accepts forms like "Mt 3, 16-17", "Mt3:16-17", "Lk1:3"
// and "Matthäus 3, 16-17".
func ParseReference(s string) (Reference, error) {
	m := referencePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Reference{}, ErrInvalidReference
	}

	chapter, _ := strconv.Atoi(m[2])
	start, _ := strconv.Atoi(m[3])
	end := start
	if m[4] != "" {
		end, _ = strconv.Atoi(m[4])
	}

	return Reference{
		Book:     m[1],
		FullName: utf8.RuneCountInString(m[1]) > maxAbbreviationLength,
		Chapter:  chapter,
		Start:    start,
		End:      end,
	}, nil
}

func (ref Reference) matches(v *model.Verse) bool {
	book := v.Abbreviation
	if ref.FullName {
		book = v.Book
	}
	return book == ref.Book &&
		v.Chapter == ref.Chapter &&
		v.Verse >= ref.Start &&
		v.Verse <= ref.End
}

// PassageVerse is one numbered verse of a passage.
type PassageVerse struct {
	Verse int    `json:"verse"`
	Text  string `json:"text"`
}

// Passage is the result of a reference lookup.
type Passage struct {
	Reference string         `json:"reference"`
	Book      string         `json:"book"`
	Chapter   int            `json:"chapter"`
	Verses    []PassageVerse `json:"verses"`
}

// Lookup returns the verses named by reference.
func (b *Bible) Lookup(reference string) (*Passage, error) {
	ref, err := ParseReference(reference)
	if err != nil {
		return nil, err
	}

	var p *Passage
	for i := range b.verses {
		v := &b.verses[i]
		if !ref.matches(v) {
			continue
		}
		if p == nil {
			p = &Passage{Reference: reference, Book: v.Book, Chapter: v.Chapter}
		}
		p.Verses = append(p.Verses, PassageVerse{Verse: v.Verse, Text: v.Text})
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Quote is a single verse with its citation.
type Quote struct {
	Text      string `json:"text"`
	Reference string `json:"reference"`
	Book      string `json:"book"`
	Chapter   int    `json:"chapter"`
	Verse     int    `json:"verse"`
}

// Random picks a verse using pick, or math/rand/v2 when pick is nil.
func (b *Bible) Random(pick func(n int) int) (*Quote, error) {
	if len(b.verses) == 0 {
		return nil, ErrEmpty
	}
	if pick == nil {
		pick = rand.IntN
	}

	v := b.verses[pick(len(b.verses))]
	return &Quote{
		Text:      v.Text,
		Reference: fmt.Sprintf("%s %d:%d", v.Book, v.Chapter, v.Verse),
		Book:      v.Book,
		Chapter:   v.Chapter,
		Verse:     v.Verse,
	}, nil
}
