// 版权所有 2024 twitterScraper Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理采集器 HTTP API 的生命周期。

Manager 封装 net/http.Server：Start 非阻塞启动，Run 阻塞到 ctx 结束后
优雅关闭，便于与采集任务一起放进 errgroup。信号由调用方通过
signal.NotifyContext 转成 ctx 取消。Addr 在启动后返回实际监听地址，
测试中可用 127.0.0.1:0 取随机端口。
*/
package server
