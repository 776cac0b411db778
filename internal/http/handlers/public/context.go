package public

import (
	handlershared "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/shared"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetUserID(c)
}

func getActor(c *gin.Context) (service.Actor, bool) {
	return handlershared.GetActor(c)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	return handlershared.ParseUintParam(c, name)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondMapped(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondWithMappedError(c, err, fallbackMsg)
}
