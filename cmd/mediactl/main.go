// Command mediactl runs one-off portal maintenance.
//
//	mediactl sweep   upload remaining /uploads/ files and rewrite their URLs
//	mediactl clear   blank every URL still pointing at /uploads/
//	mediactl keygen  print a new ENCRYPTION_KEY and its public recipient
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/c4p-portal/internal/tasks"
	"github.com/hugh/c4p-portal/pkg/config"
	"github.com/hugh/c4p-portal/pkg/crypto"
	"github.com/hugh/c4p-portal/pkg/queue"
	"github.com/hugh/c4p-portal/pkg/util"
	"github.com/joho/godotenv"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-timeout 10s] sweep|clear|keygen\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	timeout := flag.Duration("timeout", 10*time.Second, "enqueue timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	if flag.Arg(0) == "keygen" {
		if err := keygen(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	task, err := taskFor(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, "mediactl")

	client := queue.NewClient(&cfg.Redis)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	info, err := client.EnqueueContext(ctx, task)
	if err != nil {
		logger.Error("failed to enqueue", "type", task.Type(), "error", err)
		os.Exit(1)
	}

	logger.Info("task enqueued", "type", info.Type, "id", info.ID, "queue", info.Queue)
}

func taskFor(command string) (*asynq.Task, error) {
	switch command {
	case "sweep":
		return tasks.NewLegacySweepTask(), nil
	case "clear":
		return tasks.NewClearLegacyTask(), nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

// keygen writes a fresh age identity in .env form plus its recipient.
func keygen(w io.Writer) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "# public key: %s\nENCRYPTION_KEY=%s\n", enc.PublicKey(), key)
	return err
}
