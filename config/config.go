package config

import (
	"os"
	"strconv"
)

// 环境变量读取入口，其余配置模块统一经由这里取值。

// GetEnv 读取字符串环境变量，未设置时回退到默认值
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt 读取整型环境变量，未设置或解析失败时回退到默认值
func GetEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// GetEnvBool 读取布尔环境变量，未设置或解析失败时回退到默认值
func GetEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
