// Package tlsutil 提供平台客户端与 health 子命令共用的 TLS 设置：
// TLS 1.2+，仅 AEAD 密码套件，证书校验可按采集器关闭。
package tlsutil
