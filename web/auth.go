package web

import "crypto/subtle"

// Authorizer 管理端鉴权
type Authorizer interface {
	Authorize(token string) bool
}

// TokenAuthorizer 固定 token 鉴权, token 为空时拒绝所有请求
type TokenAuthorizer struct {
	token []byte
}

// NewTokenAuthorizer 创建 token 鉴权
func NewTokenAuthorizer(token string) *TokenAuthorizer {
	return &TokenAuthorizer{token: []byte(token)}
}

// Authorize 常量时间比较
func (a *TokenAuthorizer) Authorize(token string) bool {
	if len(a.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a.token, []byte(token)) == 1
}
