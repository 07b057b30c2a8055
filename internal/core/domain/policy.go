package domain

// Pure authorization decisions over (requester, task). No I/O, no logging:
// callers enforce the outcome and repositories enforce VisibilityScope.

// CanView reports whether the requester may observe the task.
func CanView(requester *User, t *Task) bool {
	if requester.Role == RoleAdmin {
		return true
	}
	if t.OwnerID == requester.ID {
		return true
	}
	return t.AssignedTo != nil && *t.AssignedTo == requester.ID
}

// VisibilityScope returns the user id every task query must be restricted
// to. Empty means unrestricted (admin); otherwise repositories match tasks
// where the id is the owner or the assignee. Never bypassed on list/read.
func VisibilityScope(requester *User) string {
	if requester.Role == RoleAdmin {
		return ""
	}
	return requester.ID
}

// CanMutate reports whether the requester may change the task's mutable
// fields (title, description, due date, priority, status). Assignment is
// not a mutable field; it only moves through CanAssign-gated operations.
func CanMutate(requester *User, t *Task) bool {
	return CanView(requester, t)
}

// CanDelete reports whether the requester may remove the task. Being the
// assignee is not enough.
func CanDelete(requester *User, t *Task) bool {
	return requester.Role == RoleAdmin || t.OwnerID == requester.ID
}

// CanAssign reports whether the requester may set or clear a task's
// assignee.
func CanAssign(requester *User) bool {
	return requester.Role == RoleAdmin
}

// CanChangeRole reports whether the requester may set targetID's role to
// newRole. An admin may never demote themselves.
func CanChangeRole(requester *User, targetID, newRole string) bool {
	if requester.Role != RoleAdmin {
		return false
	}
	if requester.ID == targetID && newRole != RoleAdmin {
		return false
	}
	return true
}

// CanBypassAdminCheck reports whether the admin-only gate may be waived:
// only before any admin account exists. Callers must pair a true result
// with an atomic claim so the bypass is single-use under races.
func CanBypassAdminCheck(existingAdminCount int64) bool {
	return existingAdminCount == 0
}
