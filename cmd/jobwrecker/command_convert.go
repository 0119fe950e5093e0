package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourceplane/jobwrecker/internal/convert"
	"github.com/sourceplane/jobwrecker/internal/jenkins"
	"github.com/sourceplane/jobwrecker/internal/loader"
	"github.com/sourceplane/jobwrecker/internal/render"
)

var (
	convertFile     string
	convertServer   string
	convertJobName  string
	convertViewName string
	requestRate     float64
)

func registerConvertCommand(root *cobra.Command) {
	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one configuration file or the configurations of a Jenkins server",
		Example: `  jobwrecker convert -f config.xml -n my-job
  jobwrecker convert -f view.xml -u my-view
  jobwrecker convert -s https://jenkins.example.com
  jobwrecker convert -s https://jenkins.example.com -n team/my-job`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkConvertFlags(); err != nil {
				return err
			}
			if cmd.Flags().Changed("requests-per-second") {
				cfg.Server.RequestsPerSecond = requestRate
				if err := loader.ValidateConfig(cfg); err != nil {
					return err
				}
			}
			return runConvert(cmd.Context())
		},
	}

	convertCmd.Flags().StringVarP(&convertFile, "filename", "f", "", "XML configuration file")
	convertCmd.Flags().StringVarP(&convertServer, "jenkins-server", "s", "", "Jenkins server URL (overrides server.url from the config)")
	convertCmd.Flags().StringVarP(&convertJobName, "name", "n", "", "Job name")
	convertCmd.Flags().StringVarP(&convertViewName, "view", "u", "", "View name")
	convertCmd.Flags().Float64Var(&requestRate, "requests-per-second", 10, "Maximum requests per second to the server (0 for no limit)")

	root.AddCommand(convertCmd)
}

func checkConvertFlags() error {
	switch {
	case convertFile != "" && convertServer != "":
		return fmt.Errorf("choose either a file (-f) or a server (-s), not both")
	case convertJobName != "" && convertViewName != "":
		return fmt.Errorf("choose either a job name (-n) or a view name (-u), not both")
	case convertFile != "" && convertJobName == "" && convertViewName == "":
		return fmt.Errorf("converting a file requires a job name (-n) or a view name (-u)")
	}

	// A server from the config file only applies when no file is given
	if convertFile == "" && convertServer == "" {
		convertServer = cfg.Server.URL
	}
	if convertFile == "" && convertServer == "" {
		return fmt.Errorf("a file (-f) or a server (-s) is required")
	}
	return nil
}

func runConvert(ctx context.Context) error {
	converter, err := newConverter()
	if err != nil {
		return err
	}

	var outcomes []render.Outcome
	if convertFile != "" {
		name, origin := convertJobName, convert.FromJob
		if name == "" {
			name, origin = convertViewName, convert.FromView
		}
		fmt.Printf("□ Converting %s...\n", convertFile)
		outcomes = []render.Outcome{converter.ConvertFile(ctx, convertFile, name, origin)}
	} else {
		client, err := jenkins.NewClient(convertServer, logger, jenkins.Options{
			Username:          cfg.Server.Username,
			Password:          cfg.Server.Password,
			Timeout:           cfg.Server.Timeout,
			RequestsPerSecond: cfg.Server.RequestsPerSecond,
			MaxRetries:        3,
		})
		if err != nil {
			return fmt.Errorf("failed to create Jenkins client: %w", err)
		}

		fmt.Printf("□ Converting configurations from %s...\n", convertServer)
		start := time.Now()
		outcomes, err = converter.ConvertServer(ctx, client, convert.Selection{
			Job:  convertJobName,
			View: convertViewName,
		})
		if err != nil {
			return fmt.Errorf("failed to convert server configurations: %w", err)
		}
		fmt.Printf("✓ Fetched %d configurations in %s\n", len(outcomes), time.Since(start).Round(time.Millisecond))
	}

	return report(outcomes)
}
