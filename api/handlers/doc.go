/*
Package handlers 提供文物修复服务 HTTP API 的请求处理器实现。

# 概述

handlers 包实现所有 HTTP 端点：项目与文物管理、AI 分析 / 修复 /
3D 生成流水线、模型文件服务与代理、管理端配置，以及统一的
响应与错误处理。所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - ProjectHandler   — 项目与文物 CRUD
  - ArtifactHandler  — 分析、修复、3D 生成与状态查询
  - AssetHandler     — 缓存模型文件服务 + 厂商资源代理
  - AdminHandler     — 厂商凭证与提示词模板管理
  - HealthHandler    — 存活与就绪探针
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）

# 错误处理

处理器不自己翻译厂商错误：原始错误交给 types.Classify 统一映射为
对外状态码和安全消息，原始细节只进日志。
*/
package handlers
