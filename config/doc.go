// Package config 提供服务配置的加载与校验：
// 默认值 → YAML 文件 → ARTIFLOW_ 前缀环境变量，逐层覆盖。
package config
