package model

// Action is an admin operation on a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
)

// Resource names used by the admin API and the permission table.
const (
	ResourceUser       = "user"
	ResourceProspect   = "prospect"
	ResourcePledge     = "pledge"
	ResourceFund       = "fund"
	ResourceProject    = "project"
	ResourcePool       = "pool"
	ResourceResultCode = "resultcode"
	ResourceCall       = "call"
	ResourceAssignment = "assignment"
)

// groupPermissions lists what each group may do beyond viewing.
// Managers hold every permission.
var groupPermissions = map[string]map[string][]Action{
	GroupSupervisors: {
		ResourceUser:     {ActionChange},
		ResourceProspect: {ActionChange},
		ResourcePool:     {ActionChange},
		ResourceCall:     {ActionAdd, ActionChange},
	},
	GroupCallers: {
		ResourceProspect: {ActionChange},
		ResourceCall:     {ActionAdd},
	},
}

// GroupAllows reports whether a group grants action on resource. Any
// granted action implies view.
func GroupAllows(group, resource string, action Action) bool {
	if group == GroupManagers {
		return true
	}
	granted := groupPermissions[group][resource]
	if action == ActionView {
		return len(granted) > 0
	}
	for _, a := range granted {
		if a == action {
			return true
		}
	}
	return false
}

// Can reports whether the user may perform action on resource.
func (u *User) Can(resource string, action Action) bool {
	if !u.IsActive {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	for _, g := range u.Groups {
		if GroupAllows(g, resource, action) {
			return true
		}
	}
	return false
}
