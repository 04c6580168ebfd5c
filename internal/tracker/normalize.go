package tracker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/steffonell/dockyard/internal/types"
)

// Key aliases recognized by the generic normalization fallback, in
// precedence order.
var (
	titleKeys   = []string{"summary", "subject", "title", "name"}
	descKeys    = []string{"description", "body"}
	keyKeys     = []string{"key", "identifier", "number"}
	createdKeys = []string{"created", "createdAt", "created_at", "createdOn"}
	updatedKeys = []string{"updated", "updatedAt", "updated_at", "lastChangedOn"}
	urlKeys     = []string{"url", "self", "webUrl", "html_url"}
)

// timestampLayouts are tried in order when parsing provider timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700", // Jira
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats the supported providers emit.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// NormalizeIssue is the best-effort fallback mapping from an arbitrary
// provider payload to a NormalizedIssue. Provider clients override it with
// exact field mappings; this version resolves common key aliases so a new
// provider works passably before its mapper exists.
//
// Normalizing the same payload twice yields identical values.
func NormalizeIssue(raw map[string]interface{}) types.NormalizedIssue {
	issue := types.NormalizedIssue{
		ID:          stringValue(raw["id"]),
		Key:         firstString(raw, keyKeys),
		Title:       firstString(raw, titleKeys),
		Description: firstString(raw, descKeys),
		Status:      types.ParseStatus(nameOrString(raw["status"])),
		Priority:    nameOrString(raw["priority"]),
		URL:         firstString(raw, urlKeys),
	}

	if u := userValue(raw["assignee"]); u != nil {
		issue.Assignee = u
	} else if id := stringValue(raw["accountId"]); id != "" {
		issue.Assignee = &types.NormalizedUser{ID: id}
	}
	if u := userValue(raw["reporter"]); u != nil {
		issue.Reporter = u
	}

	issue.Labels = labelValues(raw)

	if s := firstString(raw, createdKeys); s != "" {
		if t, err := ParseTimestamp(s); err == nil {
			issue.CreatedAt = t
		}
	}
	if s := firstString(raw, updatedKeys); s != "" {
		if t, err := ParseTimestamp(s); err == nil {
			issue.UpdatedAt = t
		}
	}

	if data, err := json.Marshal(raw); err == nil {
		issue.Raw = data
	}

	issue.Normalize()
	return issue
}

// firstString returns the first non-empty string among the aliased keys.
func firstString(raw map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s := stringValue(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

// stringValue renders scalar JSON values as strings. Numbers lose any
// trailing ".0" so numeric IDs round-trip cleanly.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case json.Number:
		return val.String()
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	default:
		return ""
	}
}

// nameOrString extracts a string from either a plain value or a
// {"name": ...} object (Jira wraps status and priority this way).
func nameOrString(v interface{}) string {
	if s := stringValue(v); s != "" {
		return s
	}
	if obj, ok := v.(map[string]interface{}); ok {
		return stringValue(obj["name"])
	}
	return ""
}

// userValue extracts a user from either a plain name string or a user object.
func userValue(v interface{}) *types.NormalizedUser {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return &types.NormalizedUser{ID: val, Name: val}
	case map[string]interface{}:
		u := &types.NormalizedUser{
			ID:          firstString(val, []string{"accountId", "id"}),
			Name:        firstString(val, []string{"displayName", "name", "fullName"}),
			Email:       firstString(val, []string{"emailAddress", "email"}),
			DisplayName: stringValue(val["displayName"]),
		}
		if u.ID == "" && u.Name == "" && u.Email == "" {
			return nil
		}
		if u.ID == "" {
			u.ID = u.Name
		}
		return u
	default:
		return nil
	}
}

// labelValues collects labels from "labels" or "tags", accepting both bare
// strings and {"name": ...} objects.
func labelValues(raw map[string]interface{}) []string {
	for _, key := range []string{"labels", "tags"} {
		items, ok := raw[key].([]interface{})
		if !ok {
			continue
		}
		var labels []string
		for _, item := range items {
			if s := nameOrString(item); s != "" {
				labels = append(labels, s)
			}
		}
		if len(labels) > 0 {
			return labels
		}
	}
	return nil
}
