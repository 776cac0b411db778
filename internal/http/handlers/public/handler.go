package public

import "github.com/Bmariten/afripulse-v2-sub001/internal/provider"

// Handler 前台接口处理器入口
// 说明：覆盖游客、顾客、卖家与推广用户侧 API，管理端见 admin 包。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
