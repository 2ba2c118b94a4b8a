package caserecord

import (
	"strings"

	"golang.org/x/net/html"
)

// Helpdesk CSV exports frequently carry Windows-1252 artifacts and
// smart punctuation that confuse prompt templates.
var charReplacementMap = map[string]string{
	"‘": "'", "’": "'", "“": "\"", "”": "\"",
	"–": "-", "—": "--", "…": "...", " ": " ",
	"": "'", "": "'", "": "\"", "": "\"",
}

// CleanFieldValue strips HTML markup and normalizes punctuation and
// whitespace in a single field value. Plain text passes through
// unchanged apart from whitespace collapsing.
func CleanFieldValue(s string) string {
	if strings.ContainsAny(s, "<>") {
		s = stripHTML(s)
	}
	for bad, good := range charReplacementMap {
		s = strings.ReplaceAll(s, bad, good)
	}
	return strings.Join(strings.Fields(s), " ")
}

// stripHTML extracts the text content of an HTML fragment. Rich-text
// descriptions from helpdesk tools arrive as markup; the model should
// only ever see the words.
func stripHTML(s string) string {
	var sb strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(tokenizer.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			// Block-level breaks become spaces so words don't fuse.
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "br", "p", "div", "li", "tr":
				sb.WriteByte(' ')
			}
		}
	}
}
