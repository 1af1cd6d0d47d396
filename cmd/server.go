package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	config "pph-connect.com/pph-connect/internal/configs"
	"pph-connect.com/pph-connect/internal/constants"
	httpapi "pph-connect.com/pph-connect/internal/http"
	"pph-connect.com/pph-connect/internal/queue"
	repository "pph-connect.com/pph-connect/internal/repositories"
	"pph-connect.com/pph-connect/internal/services"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API server",
	Long:  "Starts the workbench HTTP API, the claim lifecycle services and the reservation sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Println(".env file not found, using environment variables")
		}

		cfg := config.Load()

		db := config.New(cfg.DatabaseDSN)

		questionRepo := repository.NewQuestionRepository(db)
		answerRepo := repository.NewAnswerRepository(db)
		reviewRepo := repository.NewReviewRepository(db)
		assignmentRepo := repository.NewAssignmentRepository(db)

		var guard queue.ClaimGuard = queue.NewLocalClaimGuard()
		if cfg.RedisEnabled {
			redisClient := config.NewRedisClient(cfg.RedisAddr)
			defer redisClient.Close()
			guard = queue.NewRedisClaimGuard(redisClient, cfg.ClaimGuardKeyPrefix)
		}

		transcriptionLane := services.NewTranscriptionLane(questionRepo)
		reviewLane := services.NewReviewLane(reviewRepo)
		lanes := map[constants.Stage]services.LaneOperations{
			constants.StageTranscription: transcriptionLane,
			constants.StageReview:        reviewLane,
		}

		gate := services.NewEligibilityGate(assignmentRepo)
		selector := services.NewProjectSelector(assignmentRepo, gate, lanes)

		transcriptionClaims := services.NewClaimService(transcriptionLane, questionRepo, guard)
		reviewClaims := services.NewClaimService(reviewLane, questionRepo, guard)
		claims := map[constants.Stage]*services.ClaimService{
			constants.StageTranscription: transcriptionClaims,
			constants.StageReview:        reviewClaims,
		}

		releases := services.NewReleaseService(lanes)
		reviews := services.NewReviewService(reviewRepo)
		submissions := services.NewSubmissionService(answerRepo, assignmentRepo, reviews)

		sessions := services.NewSessionManager(
			assignmentRepo, selector, transcriptionClaims, reviewClaims, releases, submissions, reviews,
		)

		sweep := services.NewSweepService(
			questionRepo, reviewRepo, assignmentRepo,
			time.Duration(cfg.SweepGraceMinutes)*time.Minute,
		)
		sweep.Start(time.Duration(cfg.SweepIntervalSeconds) * time.Second)

		e := echo.New()
		handler := httpapi.NewHandler(sessions, selector, claims, lanes, releases, submissions)
		httpapi.Register(e, handler, cfg.RateLimit)

		go func() {
			log.Printf("HTTP server listening on %s", cfg.AppURL)
			if err := e.Start(cfg.AppURL); err != nil {
				log.Printf("server stopped: %v", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		ctx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second,
		)
		defer cancel()

		_ = e.Shutdown(ctx)
		sessions.Shutdown(ctx)
		sweep.Shutdown()

		log.Println("HTTP server and reservation sweep shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
