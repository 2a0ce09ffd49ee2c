package domain

type CtxKey string

const (
	KeySession   CtxKey = "Session"
	KeyUserID    CtxKey = "UserID"
	KeyUserEmail CtxKey = "Email"
	KeyRequestID CtxKey = "RequestID"
)
