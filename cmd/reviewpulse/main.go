package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"github.com/reviewpulse/reviewpulse/internal/classify"
	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/database"
	"github.com/reviewpulse/reviewpulse/internal/jobs"
	"github.com/reviewpulse/reviewpulse/internal/notify"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
)

var configPath string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	root := &cobra.Command{
		Use:   "reviewpulse",
		Short: "Batch sentiment pipeline with district alert notifications",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(runCmd(), onceCmd(), migrateCmd(), alertsCmd(), ackCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config, connects the database and runs migrations
func setup() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, notify.Notifier, error) {
	notifier := buildNotifier(cfg)
	pipe, err := pipeline.New(database.GetDB(), cfg, buildClassifier(cfg), notifier)
	if err != nil {
		return nil, nil, err
	}
	return pipe, notifier, nil
}

func buildClassifier(cfg *config.Config) classify.Classifier {
	if cfg.Classifier.Mode == "remote" && cfg.Classifier.InferenceURL != "" {
		log.Printf("Using remote classifier at %s", cfg.Classifier.InferenceURL)
		return classify.NewRemoteClassifier(
			cfg.Classifier.InferenceURL,
			time.Duration(cfg.Classifier.TimeoutSeconds)*time.Second,
		)
	}
	log.Printf("Using lexicon classifier")
	return classify.NewLexiconClassifier(cfg.Classifier.PositiveTerms, cfg.Classifier.NegativeTerms)
}

// buildNotifier wires every configured delivery channel; with none
// configured, alerts go to the log.
func buildNotifier(cfg *config.Config) notify.Notifier {
	var channels notify.MultiNotifier

	if cfg.SMTP.Host != "" {
		smtp, err := notify.NewSMTPNotifier(cfg.SMTP)
		if err != nil {
			log.Printf("Warning: SMTP notifier disabled: %v", err)
		} else {
			channels = append(channels, smtp)
			log.Printf("Email alerts enabled via %s", cfg.SMTP.Host)
		}
	}
	if cfg.Slack.BotToken != "" {
		slack, err := notify.NewSlackNotifier(cfg.Slack)
		if err != nil {
			log.Printf("Warning: Slack notifier disabled: %v", err)
		} else {
			channels = append(channels, slack)
			log.Printf("Slack alerts enabled for channel %s", cfg.Slack.Channel)
		}
	}

	if len(channels) == 0 {
		log.Printf("No delivery channel configured, alerts will be logged")
		return notify.NewLogNotifier()
	}
	return channels
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline on the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			pipe, notifier, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			runner := jobs.NewRunner(database.GetDB(), pipe, notifier)
			stop := make(chan struct{})

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigChan
				log.Printf("Received signal %v, shutting down...", sig)
				close(stop)
			}()

			runner.Start(time.Duration(cfg.Scheduler.IntervalMinutes)*time.Minute, stop)
			return nil
		},
	}
}

func onceCmd() *cobra.Command {
	var batchNumber int
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Process a single batch and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			pipe, notifier, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			runner := jobs.NewRunner(database.GetDB(), pipe, notifier)
			ctx := context.Background()

			var report *pipeline.Report
			if batchNumber > 0 {
				report, err = pipe.Run(ctx, batchNumber)
			} else {
				report, err = runner.RunNext(ctx)
			}
			if err != nil {
				if report != nil {
					return fmt.Errorf("batch %s failed: %w", report.BatchKey, err)
				}
				return err
			}
			if report.Skipped {
				fmt.Printf("Batch %s already completed\n", report.BatchKey)
				return nil
			}
			fmt.Printf("Batch %s: %d districts updated, %d transitioned, %d failed\n",
				report.BatchKey, report.Updated, report.Transitioned, len(report.Failed))
			return nil
		},
	}
	cmd.Flags().IntVarP(&batchNumber, "batch", "b", 0, "batch number to process (default: next unprocessed)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := setup()
			return err
		},
	}
}

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List districts currently alerting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			pipe, _, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			alerts, err := pipe.Ledger().PendingAlerts()
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Println("No districts alerting")
				return nil
			}
			for _, a := range alerts {
				fmt.Printf("%d\t%s\n", a.DistrictID, a.Message)
			}
			return nil
		},
	}
}

func ackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <district_id>",
		Short: "Acknowledge a district's alert, resetting it to quiet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			districtID, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid district id %q", args[0])
			}

			cfg, err := setup()
			if err != nil {
				return err
			}
			pipe, _, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			if err := pipe.Ledger().Acknowledge(uint(districtID)); err != nil {
				return err
			}
			fmt.Printf("District %d acknowledged\n", districtID)
			return nil
		},
	}
}
