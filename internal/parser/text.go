package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockSelector lists the content-bearing tags whose text is counted.
const blockSelector = "p, h1, h2, h3, h4, h5, h6, pre, li, td, th, article, span, div"

// ExtractText returns the visible text of an HTML document grouped by
// block-level element, one entry per element. Text inside nested blocks is
// attributed to the innermost block only, so no word is counted twice.
func ExtractText(body []byte) ([]string, error) {
	if len(body) == 0 {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	doc.Find("script, noscript, style, template").Remove()

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		own := s.Clone()
		own.Find(blockSelector).Remove()
		text := strings.Join(strings.Fields(own.Text()), " ")
		if text != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks, nil
}
