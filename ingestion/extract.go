// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/poiesic/corpusqa/core"
)

// DetectContentType guesses a source object's content type from its URI
// extension. Unknown extensions return an empty string; ExtractText
// falls back to a UTF-8 sniff for those.
func DetectContentType(uri string) string {
	switch strings.ToLower(path.Ext(uri)) {
	case ".txt", ".text", ".log":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	default:
		return ""
	}
}

// ExtractText converts a raw source object into plain text.
//
// Plain text and Markdown pass through unchanged (Markdown syntax is
// kept; it chunks and embeds fine). HTML is stripped to its visible
// text. An object with no detected content type is treated as plain
// text when its bytes decode as UTF-8. Undecodable bytes and declared
// types without an extractor fail with core.ErrUnsupportedContentType
// so the pipeline records and skips them instead of retrying.
func ExtractText(contentType string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", core.ErrUnsupportedContentType)
	}

	switch contentType {
	case "text/plain", "text/markdown", "":
		return string(data), nil
	case "text/html":
		return extractHTML(data)
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedContentType, contentType)
	}
}

// extractHTML returns the visible text of an HTML document, skipping
// script and style subtrees.
func extractHTML(data []byte) (string, error) {
	root, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return "", fmt.Errorf("%w: malformed HTML: %w", core.ErrUnsupportedContentType, err)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return sb.String(), nil
}
