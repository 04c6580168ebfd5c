package jira

import (
	"encoding/json"
	"strings"
)

// adfNode is one node of an Atlassian Document Format tree.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// blockTypes are ADF node types that terminate a line of output.
var blockTypes = map[string]bool{
	"paragraph": true,
	"heading":   true,
	"blockquote": true,
	"codeBlock": true,
	"listItem":  true,
}

// DescriptionToPlainText flattens Jira's ADF description format into plain
// text by recursively concatenating text nodes, inserting line breaks at
// paragraph and heading boundaries. Plain-string descriptions pass through
// unchanged.
func DescriptionToPlainText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		// Not an object - try a plain JSON string, else raw text.
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}

	if doc.Type != "doc" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}

	var b strings.Builder
	flattenADF(&doc, &b)
	return strings.TrimRight(b.String(), "\n")
}

// flattenADF walks the node tree appending text content, breaking lines
// after each block-level node.
func flattenADF(node *adfNode, b *strings.Builder) {
	if node.Text != "" {
		b.WriteString(node.Text)
	}
	if node.Type == "hardBreak" {
		b.WriteString("\n")
	}
	for i := range node.Content {
		flattenADF(&node.Content[i], b)
	}
	if blockTypes[node.Type] {
		b.WriteString("\n")
	}
}
