package handler

type ContextKey string

var (
	RoleCtxKey       ContextKey = "role"
	SubCtxKey        ContextKey = "sub"
	ShiftTemplateCtx ContextKey = "shiftTemplate"
	ShiftCtx         ContextKey = "shift"
)
