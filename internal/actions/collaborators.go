package actions

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseHTML extracts the plain-text content of an HTML fragment,
// dropping script/style nodes. The recipe-note grammar that decides
// which parts of the page are title/ingredients/instructions is
// explicitly out of scope; this only removes markup noise.
func parseHTML(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

// cleanHTML normalizes an HTML fragment by round-tripping it through
// goquery and re-serializing, collapsing stray whitespace runs a
// scraped page commonly carries.
func cleanHTML(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	html, err := doc.Html()
	if err != nil {
		return "", err
	}
	return collapseWhitespace(html), nil
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// splitIngredientLines is a narrow newline-splitter standing in for
// the ingredient grammar parser, whose rule engine is out of scope.
func splitIngredientLines(block string) []string {
	raw := strings.Split(block, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// imageRefPath is a narrow bookkeeping stub standing in for the image
// pipeline's storage layer, which is out of scope: it derives a
// deterministic path from a source URL without performing any I/O.
func imageRefPath(noteID string, index int, sourceURL string) string {
	ext := ".jpg"
	if i := strings.LastIndex(sourceURL, "."); i >= 0 && len(sourceURL)-i <= 5 {
		ext = sourceURL[i:]
	}
	return "images/" + noteID + "/" + strconv.Itoa(index) + ext
}
