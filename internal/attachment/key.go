package attachment

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const keyRoot = "tasks/"

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	taskIDPattern       = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// newSuffix generates the collision-avoiding part of a key. Swapped in tests.
var newSuffix = uuid.NewString

// TaskPrefix returns the key prefix that scopes every object of a task.
func TaskPrefix(taskID string) string {
	return keyRoot + taskID + "/"
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with '_'.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// ValidateTaskID rejects ids that could escape or alias another task's prefix.
func ValidateTaskID(taskID string) error {
	if taskID == "" {
		return validationf("taskId required")
	}
	if taskID == "." || taskID == ".." || !taskIDPattern.MatchString(taskID) {
		return validationf("invalid taskId %q", taskID)
	}
	return nil
}

// MakeKey builds tasks/<taskID>/<suffix>-<sanitized filename>.
func MakeKey(taskID, filename string) (string, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return "", err
	}
	if filename == "" {
		return "", validationf("filename required")
	}
	return TaskPrefix(taskID) + newSuffix() + "-" + SanitizeFilename(filename), nil
}

// BelongsToTask reports whether key lies under taskID's prefix. It is the only
// authorization check applied before destructive operations.
func BelongsToTask(key, taskID string) bool {
	if taskID == "" {
		return false
	}
	return strings.HasPrefix(key, TaskPrefix(taskID))
}

// isTaskScoped reports whether key has the shape MakeKey produces.
func isTaskScoped(key string) bool {
	rest, ok := strings.CutPrefix(key, keyRoot)
	if !ok {
		return false
	}
	taskID, name, ok := strings.Cut(rest, "/")
	return ok && name != "" && ValidateTaskID(taskID) == nil
}
