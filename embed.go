package saunasite

import "embed"

// schemaFS holds the JSON schemas that content imports are validated
// against: index.json for the content index, post.json for post frontmatter.
//
//go:embed schema/*.json
var schemaFS embed.FS
