package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"resume-parser/internal/bootstrap"
	"resume-parser/internal/logger"
	"resume-parser/internal/parser"
	"resume-parser/internal/processor"
)

// runVerify 只提取文本并输出预览，不解析
func runVerify(args []string) int {
	fs, configPath := newFlagSet("verify")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "用法: resumeparser verify [--config path] <pdf>")
		return 2
	}

	ctx := context.Background()
	rt, err := bootstrap.Setup(ctx, *configPath, "resume-parser-verify")
	if err != nil {
		logger.Error().Err(err).Msg("启动失败")
		return 1
	}
	defer rt.Close()

	driver := processor.NewBatchDriver("", "", rt.Extractor, rt.Builder)
	if _, err := driver.Verify(ctx, fs.Arg(0)); err != nil {
		logger.Error().Err(err).Str("file", fs.Arg(0)).Msg("PDF文本提取失败")
		return 1
	}
	return 0
}

// runParse 解析单个 PDF，把 JSON 写到标准输出，日志改写到标准错误
func runParse(args []string) int {
	fs, configPath := newFlagSet("parse")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "用法: resumeparser parse [--config path] <pdf>")
		return 2
	}
	pdfPath := fs.Arg(0)

	ctx := context.Background()
	rt, err := bootstrap.Setup(ctx, *configPath, "resume-parser-parse")
	if err != nil {
		logger.Error().Err(err).Msg("启动失败")
		return 1
	}
	defer rt.Close()
	logger.Logger = logger.Logger.Output(os.Stderr)

	driver := processor.NewBatchDriver("", "", rt.Extractor, rt.Builder)
	text, err := driver.Verify(ctx, pdfPath)
	if err != nil {
		logger.Error().Err(err).Str("file", pdfPath).Msg("PDF文本提取失败")
		return 1
	}

	name := filepath.Base(pdfPath)
	doc, err := rt.Builder.Build(text, name)
	if err != nil {
		stage := parser.StagePanic
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			stage = pe.Stage
		}
		logger.Error().Err(err).Str("stage", stage).Str("source", name).Msg("简历解析失败")
		return 1
	}

	data, err := processor.MarshalDocument(doc)
	if err != nil {
		logger.Error().Err(err).Msg("序列化失败")
		return 1
	}
	if _, err := os.Stdout.Write(data); err != nil {
		return 1
	}
	return 0
}
