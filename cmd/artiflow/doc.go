// artiflow 命令是文物修复 AI 编排服务的入口：
// serve 启动 HTTP 服务，migrate 建表并写入种子数据，
// health 探测运行中的实例。
package main
