package apperr

import "github.com/gin-gonic/gin"

// Respond writes err as {"error": msg} with the status of its kind.
func Respond(c *gin.Context, err error) {
	c.JSON(HTTPStatus(err), gin.H{"error": Message(err)})
}

// Abort is Respond for middleware that must stop the chain.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(HTTPStatus(err), gin.H{"error": Message(err)})
}
