package auth

import "github.com/rsaleh/gearroom/internal/model"

// Action names every privileged operation the service exposes. Authorization
// decisions go through one table instead of per-endpoint role checks, so the
// full policy is visible in one place.
type Action string

const (
	ActionCheckoutCreate     Action = "checkout:create"
	ActionCheckoutRead       Action = "checkout:read"
	ActionCheckoutClose      Action = "checkout:close"
	ActionCheckoutDelete     Action = "checkout:delete"
	ActionItemSettle         Action = "item:settle"
	ActionItemVerify         Action = "item:verify"
	ActionEquipmentRead      Action = "equipment:read"
	ActionEquipmentWrite     Action = "equipment:write"
	ActionUserManage         Action = "user:manage"
	ActionInventoryReconcile Action = "inventory:reconcile"
)

// minimumRole maps each action to the least-privileged role allowed to
// perform it.
var minimumRole = map[Action]string{
	ActionCheckoutCreate:     model.RoleEmployee,
	ActionCheckoutRead:       model.RoleEmployee,
	ActionCheckoutClose:      model.RoleSupervisor,
	ActionCheckoutDelete:     model.RoleAdmin,
	ActionItemSettle:         model.RoleEmployee,
	ActionItemVerify:         model.RoleSupervisor,
	ActionEquipmentRead:      model.RoleEmployee,
	ActionEquipmentWrite:     model.RoleAdmin,
	ActionUserManage:         model.RoleAdmin,
	ActionInventoryReconcile: model.RoleAdmin,
}

// Authorize reports whether a user with the given role may perform the
// action. Unknown actions are denied.
func Authorize(role string, action Action) bool {
	minimum, ok := minimumRole[action]
	if !ok {
		return false
	}
	return model.RoleAtLeast(role, minimum)
}
