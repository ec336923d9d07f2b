package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/api/handler"
	"github.com/Divine-P-77777/studylocal/internal/chathub"
	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/enrolment"
	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/sirupsen/logrus"
)

const usage = `Usage: admin <command> [args]

Commands:
  token <user_id> [hours]               issue an access token
  enrolments <tutor_profile_id> <student_id>
                                        list the enrolments of a pair
  cancel <enrolment_id> <as_user_id>    cancel an enrolment on behalf of a party
  delete-message <message_id>           delete a stored message and notify its room
                                        (connected clients are only notified with CHAT_BACKPLANE=redis)
  history <room_id>                     print a room's messages`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.WarnLevel)

	command, args := os.Args[1], os.Args[2:]
	if command == "token" {
		if err := issueToken(cfg, args); err != nil {
			logrus.Fatalf("Error issuing token: %v", err)
		}
		return
	}

	db, err := storage.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	repo := storage.NewStorageService(db)
	ctx := context.Background()

	switch command {
	case "enrolments":
		requireArgs(args, 2, "admin enrolments <tutor_profile_id> <student_id>")
		list, err := repo.ListEnrolmentsForPair(ctx, args[0], args[1])
		if err != nil {
			logrus.Fatalf("Error listing enrolments: %v", err)
		}
		if len(list) == 0 {
			fmt.Println("No enrolments.")
		}
		for _, e := range list {
			printEnrolment(e)
		}
	case "cancel":
		requireArgs(args, 2, "admin cancel <enrolment_id> <as_user_id>")
		e, err := cancelEnrolment(ctx, repo, args[0], args[1])
		if err != nil {
			logrus.Fatalf("Error cancelling enrolment: %v", err)
		}
		printEnrolment(*e)
	case "delete-message":
		requireArgs(args, 1, "admin delete-message <message_id>")
		if err := purgeMessage(ctx, cfg, repo, args[0]); err != nil {
			logrus.Fatalf("Error deleting message: %v", err)
		}
		fmt.Printf("Message %s has been deleted.\n", args[0])
	case "history":
		requireArgs(args, 1, "admin history <room_id>")
		list, err := messages.NewStore(repo).ListByRoom(ctx, args[0])
		if err != nil {
			logrus.Fatalf("Error loading history: %v", err)
		}
		for _, m := range list {
			fmt.Printf("%s  %-20s %s\n", m.Timestamp.Format(time.RFC3339), m.SenderName, m.Body)
		}
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func requireArgs(args []string, n int, help string) {
	if len(args) != n {
		fmt.Println("Usage:", help)
		os.Exit(1)
	}
}

func issueToken(cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: admin token <user_id> [hours]")
	}
	hours := 24
	if len(args) == 2 {
		var err error
		if hours, err = strconv.Atoi(args[1]); err != nil || hours <= 0 {
			return fmt.Errorf("invalid duration %q, please provide a positive integer", args[1])
		}
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	token, err := handler.IssueToken(cfg.JWTSecret, args[0], time.Duration(hours)*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func cancelEnrolment(ctx context.Context, repo *storage.Service, id, asUserID string) (*models.Enrolment, error) {
	caller := models.Identity{UserID: asUserID}
	profile, err := repo.TutorProfileByUserID(ctx, asUserID)
	switch {
	case err == nil:
		caller.TutorProfileID = profile.ID
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}
	return enrolment.NewService(repo).Cancel(ctx, caller, id)
}

// purgeMessage removes a message through the broker so that every instance
// subscribed to the redis backplane tells its room members.
func purgeMessage(ctx context.Context, cfg *config.Config, repo *storage.Service, id string) error {
	backplane := chathub.Backplane(chathub.NewLocalBackplane())
	if cfg.Backplane == config.BackplaneRedis {
		rdb, err := storage.OpenRedis(ctx, cfg)
		if err != nil {
			return err
		}
		if rdb == nil {
			return errors.New("REDIS_ADDR must be set for the redis backplane")
		}
		defer rdb.Close()
		backplane = chathub.NewRedisBackplane(rdb, cfg.KeyPrefix)
	} else {
		fmt.Println("No shared backplane configured, connected clients keep showing the message until they reload.")
	}
	defer backplane.Close()

	hub := chathub.NewManagerService(messages.NewStore(repo), backplane, chathub.Options{})
	return hub.Purge(ctx, id)
}

func printEnrolment(e models.Enrolment) {
	fmt.Printf("%s  %-9s tutor=%s student=%s created=%s\n",
		e.ID, e.Status, e.TutorID, e.StudentID, e.CreatedAt.Format(time.RFC3339))
}
