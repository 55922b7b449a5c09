package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	plainPolicy = bluemonday.StrictPolicy()
	richPolicy  = bluemonday.UGCPolicy()
)

// plainText strips all markup.
func plainText(s string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(s))
}

// richText keeps the safe user-content subset of HTML.
func richText(s string) string {
	return strings.TrimSpace(richPolicy.Sanitize(s))
}
