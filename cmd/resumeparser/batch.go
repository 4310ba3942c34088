package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"resume-parser/internal/bootstrap"
	"resume-parser/internal/logger"
	"resume-parser/internal/processor"
)

// runBatch 批量解析
// 命令行参数优先，未指定的使用配置文件中 batch 段的值
func runBatch(args []string) int {
	fs, configPath := newFlagSet("batch")
	input := fs.String("input", "sample_resumes", "输入目录")
	output := fs.String("output", "parsed_resumes", "输出目录")
	workers := fs.Int("workers", 1, "并行处理的文件数")
	report := fs.String("report", "", "XLSX 汇总报告路径")
	validate := fs.Bool("validate", false, "写出前按 JSON Schema 校验")
	archive := fs.Bool("archive", false, "把原始PDF和解析结果归档到 MinIO/MySQL")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Setup(ctx, *configPath, "resume-parser-batch")
	if err != nil {
		logger.Error().Err(err).Msg("启动失败")
		return 1
	}
	defer rt.Close()

	bc := rt.Config.Batch
	if !fs.Changed("input") && bc.InputDir != "" {
		*input = bc.InputDir
	}
	if !fs.Changed("output") && bc.OutputDir != "" {
		*output = bc.OutputDir
	}
	if !fs.Changed("workers") && bc.Workers > 0 {
		*workers = bc.Workers
	}
	if !fs.Changed("report") {
		*report = bc.ReportPath
	}
	if !fs.Changed("validate") {
		*validate = bc.ValidateOutput
	}
	if !fs.Changed("archive") {
		*archive = bc.Archive
	}

	opts := []processor.BatchOption{
		processor.WithWorkers(*workers),
		processor.WithSchemaValidation(*validate),
		processor.WithReportPath(*report),
	}
	if *archive {
		if rt.Storage.MinIO == nil && rt.Storage.MySQL == nil {
			logger.Warn().Msg("未配置 MinIO 或 MySQL，忽略 --archive")
		} else {
			// 事件留在发件箱，由 API 服务的中继投递
			if rt.EnableParsedEventOutbox() {
				logger.Info().Msg("归档记录同时写入发件箱事件")
			}
			opts = append(opts, processor.WithSink(rt.Service))
		}
	}

	driver := processor.NewBatchDriver(*input, *output, rt.Extractor, rt.Builder, opts...)
	if _, err := driver.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("批处理失败")
		return 1
	}
	return 0
}
