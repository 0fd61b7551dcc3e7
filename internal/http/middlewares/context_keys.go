package middlewares

// Keys for values stashed on *gin.Context.
const (
	CtxRequestID  = "request_id"
	CtxPrincipal  = "auth.principal"
	CtxCollection = "resource.collection"
)
