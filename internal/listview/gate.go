package listview

import "github.com/xjj0211/approval-frontend/internal/model"

// CanEdit 申请人可以修改待审批的单据
func CanEdit(role model.Role, rec *model.ApprovalRecord) bool {
	return role == model.RoleApplicant && rec != nil && rec.IsPending()
}

// CanDecide 审批员可以通过或拒绝待审批的单据
func CanDecide(role model.Role, rec *model.ApprovalRecord) bool {
	return role == model.RoleApprover && rec != nil && rec.IsPending()
}

// CanCreate 只有申请人可以新建
func CanCreate(role model.Role) bool {
	return role == model.RoleApplicant
}
