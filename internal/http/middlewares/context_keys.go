package middlewares

type ctxKey string

const (
	CtxActor     ctxKey = "actor"
	CtxEmail     ctxKey = "email"
	CtxRequestID ctxKey = "request_id"
	CtxJobID     ctxKey = "job_id"
)
