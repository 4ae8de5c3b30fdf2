package california

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlex/lexcrawl/internal/crawl"
	"github.com/openlex/lexcrawl/internal/fetcher/static"
	"github.com/openlex/lexcrawl/internal/retry"
)

func TestBuildRecordFullHierarchy(t *testing.T) {
	t.Parallel()

	divs := []sectionDiv{
		{TextTransform: "uppercase", Text: "CIVIL CODE - CIV"},
		{TextIndent: "20px", Text: "DIVISION 1. PERSONS [38 - 86]", Bold: "DIVISION 1.", Italic: "PERSONS [38 - 86]"},
		{Display: "inline", Text: "PART 2. PERSONAL RIGHTS", Bold: "PART 2.", Italic: "PERSONAL RIGHTS"},
		{TextIndent: "0px", Display: "block", H6: "43.", Italic: "(Enacted 1872.)",
			Paragraphs: []string{"Every person has the right of protection.", "No distinction is made."}},
	}

	rec, err := buildRecord("https://leginfo.legislature.ca.gov/faces/codes_displaySection.xhtml?sectionNum=43.&lawCode=CIV", divs)
	require.NoError(t, err)

	assert.Equal(t, "CA", rec.Jurisdiction)
	assert.Equal(t, "43.", rec.Section)
	assert.Equal(t, "Every person has the right of protection.\nNo distinction is made.", rec.Text)
	require.Len(t, rec.Headings, 4)
	assert.Equal(t, crawl.Heading{Level: "code", Text: "CIVIL CODE - CIV"}, rec.Headings[0])
	assert.Equal(t, crawl.Heading{Level: "division", Text: "DIVISION 1.", Note: "PERSONS [38 - 86]"}, rec.Headings[1])
	assert.Equal(t, crawl.Heading{Level: "part", Text: "PART 2.", Note: "PERSONAL RIGHTS"}, rec.Headings[2])
	assert.Equal(t, "section-note", rec.Headings[3].Level)
	assert.Len(t, rec.Key, 64)
	assert.WithinDuration(t, time.Now().UTC(), rec.CollectedAt, time.Minute)
}

func TestBuildRecordKeyBindsURLAndText(t *testing.T) {
	t.Parallel()

	divs := []sectionDiv{
		{H6: "1.", Paragraphs: []string{"Some law text."}},
	}
	a, err := buildRecord("https://example.test/a", divs)
	require.NoError(t, err)
	b, err := buildRecord("https://example.test/b", divs)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)

	again, err := buildRecord("https://example.test/a", divs)
	require.NoError(t, err)
	assert.Equal(t, a.Key, again.Key)
}

func TestBuildRecordBlankLawIsPermanent(t *testing.T) {
	t.Parallel()

	divs := []sectionDiv{
		{TextTransform: "uppercase", Text: "PENAL CODE"},
		{H6: "187.", Paragraphs: nil},
	}
	_, err := buildRecord("https://example.test/x", divs)
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))
}

func TestBuildRecordUnknownLabelKept(t *testing.T) {
	t.Parallel()

	divs := []sectionDiv{
		{TextIndent: "16px", Text: "APPENDIX A", Bold: "APPENDIX A"},
		{H6: "1.", Paragraphs: []string{"Text."}},
	}
	rec, err := buildRecord("https://example.test/x", divs)
	require.NoError(t, err)
	require.Len(t, rec.Headings, 1)
	assert.Equal(t, crawl.Heading{Level: "unknown", Text: "APPENDIX A"}, rec.Headings[0])
}

func TestClassifyLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "title", classifyLabel("TITLE 3. X"))
	assert.Equal(t, "division", classifyLabel("DIVISION 1."))
	assert.Equal(t, "part", classifyLabel("PART 2."))
	assert.Equal(t, "chapter", classifyLabel("CHAPTER 5."))
	assert.Equal(t, "article", classifyLabel("ARTICLE 1."))
	assert.Equal(t, "provisions", classifyLabel("GENERAL PROVISIONS"))
	assert.Equal(t, "provisions", classifyLabel("PROVISIONS"))
	assert.Equal(t, "", classifyLabel("APPENDIX"))
}

func TestProbeFetchClassifiesBranchAndLeaf(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/branch", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="expandedbranchcodesid">
			<a href="/faces/codes?division=1">Division 1</a>
			<a href="javascript:submitForm()">skip me</a>
			<a href="https://leginfo.legislature.ca.gov/faces/codes?division=2">Division 2</a>
		</div></body></html>`))
	})
	mux.HandleFunc("/leaf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="manylawsections"><a href="javascript:x()">1.</a></div></body></html>`))
	})
	mux.HandleFunc("/shell", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div>loading</div></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	site := New(static.New(static.Config{Timeout: 5 * time.Second}, nil), nil)
	ctx := context.Background()

	res, ok := site.probeFetch(ctx, crawl.Target{URL: srv.URL + "/branch"})
	require.True(t, ok)
	assert.False(t, res.IsLeaf)
	assert.Equal(t, []string{
		srv.URL + "/faces/codes?division=1",
		"https://leginfo.legislature.ca.gov/faces/codes?division=2",
	}, res.Links)

	res, ok = site.probeFetch(ctx, crawl.Target{URL: srv.URL + "/leaf"})
	require.True(t, ok)
	assert.True(t, res.IsLeaf)
	assert.Empty(t, res.Links)

	// A bare shell means the probe cannot classify and a render is needed.
	_, ok = site.probeFetch(ctx, crawl.Target{URL: srv.URL + "/shell"})
	assert.False(t, ok)
}
