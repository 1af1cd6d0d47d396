package cmd

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	config "pph-connect.com/pph-connect/internal/configs"
	repository "pph-connect.com/pph-connect/internal/repositories"
	"pph-connect.com/pph-connect/internal/services"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Release overdue reservations once and exit",
	Long:  "Force-releases every assigned unit whose reservation deadline passed more than the grace period ago",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Println(".env file not found, using environment variables")
		}

		cfg := config.Load()
		db := config.New(cfg.DatabaseDSN)

		sweep := services.NewSweepService(
			repository.NewQuestionRepository(db),
			repository.NewReviewRepository(db),
			repository.NewAssignmentRepository(db),
			time.Duration(cfg.SweepGraceMinutes)*time.Minute,
		)

		released, err := sweep.RunOnce(context.Background())
		if err != nil {
			return err
		}

		log.Printf("released %d overdue reservations", released)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
