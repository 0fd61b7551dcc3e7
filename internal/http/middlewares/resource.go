package middlewares

import (
	"net/http"

	"github.com/geocoder89/catalogapi/internal/resource"
	"github.com/gin-gonic/gin"
)

// ResolveModel maps the :model path segment to its collection before any
// auth runs. Unknown names stop the request with 404.
func ResolveModel(reg *resource.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		coll, err := reg.Lookup(c.Param("model"))
		if err != nil {
			abortError(c, http.StatusNotFound, "invalid_model", "Invalid Model")
			return
		}

		c.Set(CtxCollection, coll)
		c.Next()
	}
}

func CollectionFromContext(c *gin.Context) (resource.Collection, bool) {
	v, ok := c.Get(CtxCollection)
	if !ok {
		return nil, false
	}
	coll, ok := v.(resource.Collection)
	return coll, ok
}
