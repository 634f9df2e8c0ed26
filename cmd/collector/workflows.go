package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/247void/twitterScraper/collector"
	"github.com/247void/twitterScraper/workflow"
)

// =============================================================================
// 🔀 workflows 命令
// =============================================================================

// runWorkflows 列出预设，并校验配置中每个采集器的工作流。
// --dump 输出指定预设的 YAML，可作为 workflow_file 的起点。
func runWorkflows(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("workflows", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	dump := fs.String("dump", "", "Print the named preset as YAML")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dump != "" {
		wf, err := workflow.Preset(*dump)
		if err != nil {
			return err
		}
		data, err := workflow.Marshal(wf)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	fmt.Fprintln(stdout, "Presets:")
	for _, name := range workflow.PresetNames() {
		wf, err := workflow.Preset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "  %-20s %2d steps  entry=%s\n", name, len(wf.Steps), wf.EntryPoint)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if len(cfg.Collectors) == 0 {
		return nil
	}

	fmt.Fprintln(stdout, "Collectors:")
	var errs []error
	for _, cc := range cfg.Collectors {
		preset := cc.Workflow
		if preset == "" {
			preset = cfg.Workflow.DefaultPreset
		}
		source := preset
		if cc.WorkflowFile != "" {
			source = cc.WorkflowFile
		}

		wf, err := workflow.Resolve(preset, cc.WorkflowFile)
		if err == nil {
			err = collector.ValidateWorkflow(wf, cc.Constants, cfg.Workflow.StrictParams)
		}
		if err != nil {
			fmt.Fprintf(stdout, "  %-20s %s  INVALID: %v\n", cc.ID, source, err)
			errs = append(errs, fmt.Errorf("collector %s: %w", cc.ID, err))
			continue
		}
		fmt.Fprintf(stdout, "  %-20s %s  ok\n", cc.ID, source)
	}
	return errors.Join(errs...)
}
