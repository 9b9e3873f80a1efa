package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewHTTPClient 创建带超时和重试的 Resty 客户端
// 迁移任务拉旧站图片走这里，统一超时策略
func NewHTTPClient() *resty.Client {
	return resty.New().
		SetTimeout(20*time.Second). // 旧站图片可能较慢，给 20s
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", "CarHub-Go-App/1.0")
}
