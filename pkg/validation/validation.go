package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinWorkers = 1
	MaxWorkers = 20

	MaxPageSize = 200
)

// ValidStatuses are the task states the API accepts as filters.
var ValidStatuses = []string{"open", "in_progress", "blocked", "done"}

var taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

func ValidateWorkerCount(workers int) error {
	if workers < MinWorkers || workers > MaxWorkers {
		return fmt.Errorf("worker count must be between %d and %d, got %d", MinWorkers, MaxWorkers, workers)
	}
	return nil
}

// ValidateTaskID accepts up to 64 letters, digits, '-' and '_', not starting with a separator.
func ValidateTaskID(id string) error {
	if !taskIDPattern.MatchString(id) {
		return fmt.Errorf("invalid task ID: %q", id)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateStatus accepts an empty status (no filter) or one of ValidStatuses.
func ValidateStatus(status string) error {
	if status == "" {
		return nil
	}
	for _, s := range ValidStatuses {
		if s == status {
			return nil
		}
	}
	return fmt.Errorf("invalid status: %s (must be one of: %s)", status, strings.Join(ValidStatuses, ", "))
}

func ValidatePage(page, pageSize int) error {
	if page < 1 {
		return fmt.Errorf("page must be a positive integer, got %d", page)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return fmt.Errorf("page size must be between 1 and %d, got %d", MaxPageSize, pageSize)
	}
	return nil
}
