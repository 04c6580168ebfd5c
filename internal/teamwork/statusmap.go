package teamwork

import (
	"strings"

	"github.com/steffonell/dockyard/internal/types"
)

// sharedToNative translates the shared status vocabulary to Teamwork's
// native task statuses, used when building status[] query filters.
var sharedToNative = map[types.Status]string{
	types.StatusOpen:       "new",
	types.StatusInProgress: "inprogress",
	types.StatusDone:       "completed",
	types.StatusClosed:     "closed",
	types.StatusCancelled:  "cancelled",
}

// StatusToNative translates a shared status to Teamwork's vocabulary.
// Unmapped values fall back to "new".
func StatusToNative(s types.Status) string {
	if native, ok := sharedToNative[s]; ok {
		return native
	}
	return "new"
}

// StatusFromNative translates a Teamwork task status to the shared
// vocabulary. Unknown native values default to open.
func StatusFromNative(native string) types.Status {
	switch strings.ToLower(strings.TrimSpace(native)) {
	case "new", "reopened":
		return types.StatusOpen
	case "inprogress", "in progress":
		return types.StatusInProgress
	case "completed", "complete":
		return types.StatusDone
	case "closed":
		return types.StatusClosed
	case "cancelled", "deleted":
		return types.StatusCancelled
	default:
		return types.StatusOpen
	}
}
