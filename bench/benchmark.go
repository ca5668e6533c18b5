package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli"
	"github.com/valyala/fasthttp"
)

// 对浏览接口或媒体文件做并发压测
func main() {
	app := cli.NewApp()
	app.Name = "filebrowser-bench"
	app.Usage = "Concurrent load test for the browse and media endpoints"
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "url, u", Value: "http://127.0.0.1:8080/browse/", Usage: "Target URL"},
		&cli.StringFlag{Name: "token, t", Usage: "Staff bearer token"},
		&cli.IntFlag{Name: "concurrent, c", Value: 10, Usage: "Concurrent workers"},
		&cli.IntFlag{Name: "requests, n", Value: 1000, Usage: "Total requests"},
	}
	app.Action = func(c *cli.Context) error {
		benchmarkBrowse(c.String("url"), c.String("token"), c.Int("concurrent"), c.Int("requests"))
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func benchmarkBrowse(url, token string, concurrent int, requests int) {
	if concurrent <= 0 {
		concurrent = 1
	}
	client := &fasthttp.Client{MaxConnsPerHost: concurrent}

	var wg sync.WaitGroup
	var failed int64
	start := time.Now()

	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := fasthttp.AcquireRequest()
			resp := fasthttp.AcquireResponse()
			defer fasthttp.ReleaseRequest(req)
			defer fasthttp.ReleaseResponse(resp)

			req.SetRequestURI(url)
			req.Header.Set("Accept", "application/json")
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			for j := 0; j < requests/concurrent; j++ {
				if err := client.Do(req, resp); err != nil || resp.StatusCode() >= 400 {
					atomic.AddInt64(&failed, 1)
				}
				resp.Reset()
			}
		}()
	}

	wg.Wait()
	duration := time.Since(start)

	fmt.Printf("完成 %d 个请求，失败 %d，耗时: %v\n", requests, atomic.LoadInt64(&failed), duration)
	fmt.Printf("QPS: %.2f\n", float64(requests)/duration.Seconds())
}
