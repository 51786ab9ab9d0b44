// Package privacy 日志与导出使用的脱敏工具
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const anonymizedPrefix = "anon_"

var (
	phonePattern = regexp.MustCompile(`1[3-9]\d{9}`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	spaceRun     = regexp.MustCompile(`\s+`)
)

// AnonymizeUserID 用户 id 脱敏：sha256 前 8 字节
func AnonymizeUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return anonymizedPrefix + hex.EncodeToString(sum[:8])
}

// RemovePII 去除手机号、邮箱，并把换行等空白合并为一个空格
func RemovePII(text string) string {
	cleaned := phonePattern.ReplaceAllString(text, "[phone]")
	cleaned = emailPattern.ReplaceAllString(cleaned, "[email]")
	cleaned = spaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
