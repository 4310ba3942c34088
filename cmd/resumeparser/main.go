package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const usage = `用法: resumeparser <命令> [参数]

命令:
  batch    批量解析输入目录中的所有PDF
  verify   提取单个PDF的文本并输出预览
  parse    解析单个PDF并把JSON输出到标准输出
  worker   从RabbitMQ消费解析请求，直到收到退出信号

使用 "resumeparser <命令> --help" 查看命令参数
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	args := os.Args[2:]
	var code int
	switch os.Args[1] {
	case "batch":
		code = runBatch(args)
	case "verify":
		code = runVerify(args)
	case "parse":
		code = runParse(args)
	case "worker":
		code = runWorker(args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "错误: 未知命令 '%s'\n\n%s", os.Args[1], usage)
		code = 2
	}
	os.Exit(code)
}

// newFlagSet 每个子命令都支持 --config
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "配置文件路径，为空时按默认路径查找")
	return fs, configPath
}
