// Package processors holds the builtin post-processors: pure transforms
// over a cached response snapshot, registered under fixed names.
package processors

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/epifetch/webcache/pkg/cache"
)

// Fixed registration names for the builtin processors.
const (
	NameExtractLinks = "extract_links"
	NameHTMLTitle    = "html_title"
	NameWordCount    = "word_count"
	NameJSON         = "json"
	NameHeaders      = "headers"
)

var (
	linkPattern  = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")
	titlePattern = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
)

// RegisterAll registers every builtin processor on the cache under its
// fixed name.
func RegisterAll(c *cache.Cache) {
	c.RegisterPostProcessor(NameExtractLinks, ExtractLinks)
	c.RegisterPostProcessor(NameHTMLTitle, HTMLTitle)
	c.RegisterPostProcessor(NameWordCount, WordCount)
	c.RegisterPostProcessor(NameJSON, JSONBody)
	c.RegisterPostProcessor(NameHeaders, Headers)
}

// ExtractLinks returns all http(s) URLs found in the response text.
func ExtractLinks(resp *cache.Response) (any, error) {
	links := linkPattern.FindAllString(resp.Text, -1)
	if links == nil {
		links = []string{}
	}
	return links, nil
}

// HTMLTitle returns the first <title> element of an HTML response, or
// "No title found".
func HTMLTitle(resp *cache.Response) (any, error) {
	m := titlePattern.FindStringSubmatch(resp.Text)
	if m == nil {
		return "No title found", nil
	}
	return m[1], nil
}

// WordCount returns word and character statistics for the response text:
// total_words, unique_words and characters (runes, not bytes).
func WordCount(resp *cache.Response) (any, error) {
	words := strings.Fields(resp.Text)
	unique := map[string]struct{}{}
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return map[string]int{
		"total_words":  len(words),
		"unique_words": len(unique),
		"characters":   utf8.RuneCountInString(resp.Text),
	}, nil
}

// JSONBody decodes the response text as JSON.
func JSONBody(resp *cache.Response) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(resp.Text), &value); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	return value, nil
}

// Headers returns the response headers flattened to their first values.
func Headers(resp *cache.Response) (any, error) {
	flat := map[string]string{}
	for name := range resp.Headers {
		flat[name] = resp.Headers.Get(name)
	}
	return flat, nil
}
