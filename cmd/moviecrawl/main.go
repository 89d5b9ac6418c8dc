package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/John-Robertt/moviecrawl/internal/app/run"
	"github.com/John-Robertt/moviecrawl/internal/config"
	"github.com/John-Robertt/moviecrawl/internal/domain"
	"github.com/John-Robertt/moviecrawl/internal/logger"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	cli, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.Code(err), err)
		return 1
	}

	progressW, interactive := pickProgressWriter()
	log := logger.NewWithConfig("moviecrawl", loggerConfig(eff, interactive))

	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	// Ctrl-C：停止分发新链接，已在处理的链接跑完后照常写出。
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, closeFetcher, err := run.NewFetcher(ctx, eff, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化抓取器失败：%v\n", err)
		return 1
	}

	br, runErr := run.Execute(ctx, eff, fetcher, obs, log)
	if err := closeFetcher(); err != nil {
		log.Warn().Err(err).Msg("关闭抓取器失败")
	}

	emitResult(br)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", runErr)
		return 1
	}
	if interactive && len(br.Items) > 0 {
		emitLocations(progressW, eff)
	}
	if br.Summary.Failed == 0 && br.Summary.Skipped == 0 {
		return 0
	}
	return 1
}

func parseRunArgs(args []string) (config.CLIArgs, error) {
	cli := config.CLIArgs{}

	// 同时支持 "--x v" 与 "--x=v"。
	value := func(i *int, a, name string) (string, bool, error) {
		if a == name {
			if *i+1 >= len(args) {
				return "", true, fmt.Errorf("%s 需要一个值", name)
			}
			*i++
			return args[*i], true, nil
		}
		if strings.HasPrefix(a, name+"=") {
			return strings.TrimPrefix(a, name+"="), true, nil
		}
		return "", false, nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]

		if a == "--headless" {
			cli.Headless = true
			cli.HeadlessSet = true
			continue
		}
		if strings.HasPrefix(a, "--headless=") {
			v := strings.TrimPrefix(a, "--headless=")
			switch v {
			case "true":
				cli.Headless = true
			case "false":
				cli.Headless = false
			default:
				return config.CLIArgs{}, fmt.Errorf("--headless 只能是 true 或 false，实际是 %q", v)
			}
			cli.HeadlessSet = true
			continue
		}

		matched := false
		for _, name := range []string{"--config", "--input", "--output", "--limit", "--workers", "--fetcher"} {
			v, ok, err := value(&i, a, name)
			if err != nil {
				return config.CLIArgs{}, err
			}
			if !ok {
				continue
			}
			matched = true
			if strings.TrimSpace(v) == "" {
				return config.CLIArgs{}, fmt.Errorf("%s 不能为空", name)
			}
			switch name {
			case "--config":
				cli.ConfigPath = v
			case "--input":
				cli.Input = v
			case "--output":
				cli.Output = v
			case "--limit":
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return config.CLIArgs{}, fmt.Errorf("--limit 必须是非负整数，实际是 %q", v)
				}
				cli.Limit = n
				cli.LimitSet = true
			case "--workers":
				n, err := strconv.Atoi(v)
				if err != nil {
					return config.CLIArgs{}, fmt.Errorf("--workers 必须是整数，实际是 %q", v)
				}
				cli.Workers = n
				cli.WorkersSet = true
			case "--fetcher":
				switch strings.ToLower(v) {
				case config.FetcherBrowser, config.FetcherHTTP:
					cli.Fetcher = strings.ToLower(v)
				default:
					return config.CLIArgs{}, fmt.Errorf("--fetcher 只能是 browser 或 http，实际是 %q", v)
				}
			}
			break
		}
		if matched {
			continue
		}
		if strings.HasPrefix(a, "-") {
			return config.CLIArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		return config.CLIArgs{}, fmt.Errorf("多余的参数 %q", a)
	}

	return cli, nil
}

// loggerConfig：交互终端下进度由 progressUI 展示，日志默认只保留 warn 及以上。
func loggerConfig(eff config.EffectiveConfig, interactive bool) logger.Config {
	level := eff.LogLevel
	if level == "" && interactive {
		level = "warn"
	}
	return logger.Config{Level: level, Out: os.Stderr, NoColor: !isTTY(os.Stderr)}
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  moviecrawl run [--config f] [--input f] [--output f] [--limit n] [--workers n]
                 [--fetcher browser|http] [--headless[=true|false]]

命令：
  run    读取链接表，并发抓取详情页并写出数据集

使用 "moviecrawl run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  moviecrawl run [--config f] [--input f] [--output f] [--limit n] [--workers n]
                 [--fetcher browser|http] [--headless[=true|false]]

参数：
  --config    配置文件（.yaml/.yml/.json）；未指定时依次查找 moviecrawl.yaml / moviecrawl.yml / moviecrawl.json
  --input     链接表（.csv/.xlsx，需包含 link 列；默认 movie_links.csv）
  --output    数据集输出（.csv/.xlsx；默认 movies_dataset.csv）
  --limit     只处理前 n 个链接（0 表示全部）
  --workers   并发 worker 数（截断到 1..32；默认 4）
  --fetcher   抓取后端：browser（无头浏览器，默认）或 http
  --headless  浏览器是否无头运行；支持 --headless=false 覆盖配置
  -h, --help  显示帮助
`)
}

func emitResult(br domain.BatchResult) {
	s := br.Summary
	line := fmt.Sprintf("完成：attempted=%d succeeded=%d failed=%d skipped=%d\n", s.Attempted, s.Succeeded, s.Failed, s.Skipped)

	if isTTY(os.Stdout) {
		fmt.Fprint(os.Stdout, line)
		emitFailures(os.Stderr, br)
		return
	}

	// stdout 非 TTY：stdout 只输出一个运行报告 JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(br)
	fmt.Fprint(os.Stderr, line)
	emitFailures(os.Stderr, br)
}

func emitFailures(w io.Writer, br domain.BatchResult) {
	for _, it := range br.Items {
		if it.Status != domain.StatusFailed {
			continue
		}
		fmt.Fprintf(w, "%s %s: %s\n", it.URL, it.ErrorCode, it.ErrorMsg)
	}
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "output: %s\n", eff.OutputPath)
	if eff.ReportPath != "" {
		fmt.Fprintf(w, "report: %s\n", eff.ReportPath)
	}
}
