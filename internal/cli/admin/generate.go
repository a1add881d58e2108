package admin

import (
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/contestgen/internal/config"
	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/repository"
	"github.com/spf13/cobra"
)

// GenerateCmd returns the generate command
func GenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one contest in the foreground",
		Long: `Retrieve context for a subject and topic and generate one contest.
The contest is printed as JSON. With --publish it is also pushed to the
contest backend and the publish outcome is printed instead.`,
		RunE: runGenerate,
	}

	cmd.Flags().StringP("subject", "s", "Physics", "Subject to generate for")
	cmd.Flags().StringP("topic", "t", "", "Topic (defaults to SCHEDULE_TOPIC)")
	cmd.Flags().IntP("count", "n", 0, "Number of questions (defaults to QUESTION_COUNT)")
	cmd.Flags().Bool("publish", false, "Publish the contest to the backend")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	subject, _ := cmd.Flags().GetString("subject")
	topic, _ := cmd.Flags().GetString("topic")
	if topic == "" {
		topic = cfg.ScheduleTopic
	}
	count, _ := cmd.Flags().GetInt("count")
	if count < 0 {
		return domain.ErrInvalidQuestionCount
	}
	if count == 0 {
		count = cfg.QuestionCount
	}
	publish, _ := cmd.Flags().GetBool("publish")

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	pool, err := openDatabase(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	chunks := repository.NewChunkRepository(pool)
	m := metrics.New()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if publish {
		result := newPipeline(cfg, chunks, provider, m).RunSubject(ctx, subject, topic, count)
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !result.Succeeded() {
			return fmt.Errorf("generation failed for %s", subject)
		}
		return nil
	}

	contest, err := newGenerator(cfg, chunks, provider, m).Generate(ctx, subject, topic, count)
	if err != nil {
		return err
	}
	return enc.Encode(contest)
}
