package tagging

import (
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Book is the metadata the generator reads.
type Book struct {
	ID          string
	Title       string
	Description string
	PubDate     string // YYYY-MM-DD, may be empty
	Formats     []string
	Keywords    []string
	Genres      []Genre
}

type Genre struct {
	Slug  string
	Label string
}

type Generator struct {
	rules *Rules
	now   func() time.Time
}

func NewGenerator(rules *Rules) *Generator {
	return &Generator{rules: rules, now: time.Now}
}

// Generate returns the book's tags, deduplicated and sorted.
func (g *Generator) Generate(b Book) []string {
	var tags []string
	tags = append(tags, formatTags(b.Formats)...)
	tags = append(tags, releaseTags(b.PubDate, g.now())...)
	tags = append(tags, genreTags(b.Genres)...)
	tags = append(tags, lengthTags(b.Description)...)
	for _, fam := range g.rules.Families {
		tags = append(tags, familyTags(fam, b)...)
	}
	tags = append(tags, discoveryTags(g.rules.Discovery, b.ID)...)

	slices.Sort(tags)
	return slices.Compact(tags)
}

func formatTags(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, "format:"+strings.ToLower(f))
	}
	return out
}

func releaseTags(pubDate string, now time.Time) []string {
	if pubDate == "" {
		return nil
	}
	d, err := time.Parse(time.DateOnly, pubDate)
	if err != nil {
		return nil
	}
	switch {
	case d.After(now):
		return []string{"coming-soon", "pre-order"}
	case d.After(now.AddDate(0, -3, 0)):
		return []string{"new-release", "just-released"}
	case d.Year() < now.Year()-2:
		return []string{"backlist", "established"}
	}
	return nil
}

func genreTags(genres []Genre) []string {
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		out = append(out, "genre:"+g.Slug)
	}
	return out
}

// lengthTags uses the description's word count as a stand-in for the
// book's length.
func lengthTags(desc string) []string {
	if desc == "" {
		return nil
	}
	switch n := len(strings.Fields(desc)); {
	case n > 500:
		return []string{"detailed", "immersive"}
	case n < 200:
		return []string{"quick-read", "bite-sized"}
	}
	return nil
}

func fieldText(b Book, field string) string {
	switch field {
	case FieldTitle:
		return b.Title
	case FieldDescription:
		return b.Description
	case FieldKeywords:
		return strings.Join(b.Keywords, " ")
	case FieldGenres:
		labels := make([]string, 0, len(b.Genres))
		for _, g := range b.Genres {
			labels = append(labels, g.Label)
		}
		return strings.Join(labels, " ")
	}
	return ""
}

func joinFields(b Book, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fieldText(b, f))
	}
	return strings.Join(parts, " ")
}

func familyTags(fam Family, b Book) []string {
	if fam.Requires != "" && strings.TrimSpace(fieldText(b, fam.Requires)) == "" {
		return nil
	}
	text := joinFields(b, fam.Fields)
	var out []string
	for _, r := range fam.Rules {
		t := text
		if len(r.Fields) > 0 {
			t = joinFields(b, r.Fields)
		}
		if r.re.MatchString(t) {
			out = append(out, r.Tags...)
		}
	}
	if len(out) == 0 && len(b.Genres) > 0 {
		out = append(out, fam.Fallback...)
	}
	return out
}

// discoveryTags picks at most one discovery tag for roughly Percent of
// books. The choice is a hash of the book id, so reruns agree.
func discoveryTags(d Discovery, bookID string) []string {
	if len(d.Tags) == 0 || d.Percent <= 0 {
		return nil
	}
	h := xxhash.Sum64String(bookID)
	if h%100 >= uint64(d.Percent) {
		return nil
	}
	return []string{d.Tags[(h/100)%uint64(len(d.Tags))]}
}
