package group

import "context"

// Directory answers group-membership questions. Membership management itself
// lives outside this module.
type Directory interface {
	// ListEligibleAssignees returns the ids of group members without edit or
	// admin permission, the population auto-assigned schedules fan out to.
	ListEligibleAssignees(ctx context.Context, groupID int64) ([]int64, error)
}
