package acs

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cuemby/ledgersync/pkg/types"
)

func quotedCommaList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func formatCreatedAt(c *types.CreatedEvent) string {
	if c.CreatedAt.IsZero() {
		return ""
	}
	return c.CreatedAt.UTC().Format(time.RFC3339)
}

func stringifyRaw(raw any) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(b)
}

func jsonRaw(raw any) string {
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
