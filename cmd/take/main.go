// Command take runs a timed assessment attempt from the terminal:
// start or resume, answer questions with debounced autosave, and submit
// manually or on expiry.
//
// Usage:
//
//	take -assessment 42 [-email student@example.com]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/assesslyhq/assessly-go/internal/api"
	"github.com/assesslyhq/assessly-go/internal/attempt"
	"github.com/assesslyhq/assessly-go/internal/config"
	"github.com/assesslyhq/assessly-go/internal/logger"
	"github.com/assesslyhq/assessly-go/internal/model"
)

func main() {
	var (
		assessmentID = flag.Int64("assessment", 0, "assessment id to attempt")
		email        = flag.String("email", "", "login email (omit when ASSESSLY_TOKEN is set)")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if *assessmentID <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := api.New(cfg, log)
	ctx := context.Background()

	if cfg.AccessToken == "" {
		if *email == "" {
			log.Fatal().Msg("Set ASSESSLY_TOKEN or pass -email to log in")
		}
		fmt.Print("Password: ")
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot read password")
		}
		if _, err := client.Login(ctx, *email, string(pw)); err != nil {
			log.Fatal().Err(err).Msg("Login failed")
		}
	}

	engine := attempt.NewEngine(client, attempt.NewClock(), cfg.AutosaveWindow, cfg.TickInterval, *assessmentID, log)
	engine.OnAutoSubmit = func(err error) {
		if err != nil {
			fmt.Println("\nTime is up, but submit failed:", err)
			fmt.Println("Type 'submit' to retry.")
			return
		}
		fmt.Println("\nTime is up. Your attempt was submitted.")
		os.Exit(0)
	}

	if err := engine.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Could not start the attempt")
	}
	defer engine.Close()

	fmt.Println("Commands: n(ext), p(rev), j <i>, a <option #>, t <text>, time, submit, quit")
	printQuestion(engine)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "n":
			engine.Next()
			printQuestion(engine)
		case "p":
			engine.Prev()
			printQuestion(engine)
		case "j":
			i, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				fmt.Println("usage: j <question number>")
				continue
			}
			engine.Jump(i - 1)
			printQuestion(engine)
		case "a":
			answerOption(engine, arg)
		case "t":
			answerText(engine, arg)
		case "time":
			printRemaining(engine)
		case "submit":
			fmt.Print("Submit the attempt? This cannot be undone. [y/N] ")
			if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
				fmt.Println("Not submitted.")
				continue
			}
			if err := engine.Submit(ctx); err != nil {
				fmt.Println("Submit failed:", err)
				continue
			}
			fmt.Println("Submitted.")
			return
		case "quit":
			fmt.Println("Leaving; your attempt stays in progress.")
			return
		case "":
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

func printQuestion(engine *attempt.Engine) {
	q, found := engine.Current()
	if !found {
		fmt.Println("This assessment has no questions.")
		return
	}

	fmt.Printf("\n[%d/%d] %s (%d marks)\n", engine.Index()+1, len(engine.Questions()), q.Stem, q.Marks)
	if q.Type == model.QuestionTypeMCQ {
		for i, o := range q.Options {
			marker := " "
			if ans, ok := engine.Answer(q.ID); ok && ans.OptionID != nil && *ans.OptionID == o.ID {
				marker = "*"
			}
			fmt.Printf("  %s %d) %s\n", marker, i+1, o.Label)
		}
	} else if ans, ok := engine.Answer(q.ID); ok && ans.Text != nil {
		fmt.Println("  your answer:", *ans.Text)
	}
	printRemaining(engine)
}

func printRemaining(engine *attempt.Engine) {
	if left := engine.Remaining(); left != nil {
		fmt.Println("  time left:", attempt.FormatRemaining(*left))
	}
}

func answerOption(engine *attempt.Engine, arg string) {
	q, found := engine.Current()
	if !found || q.Type != model.QuestionTypeMCQ {
		fmt.Println("The current question takes no option answer.")
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(q.Options) {
		fmt.Printf("usage: a <1..%d>\n", len(q.Options))
		return
	}
	if err := engine.SelectOption(q.ID, q.Options[n-1].ID); err != nil {
		fmt.Println("Cannot answer:", err)
		return
	}
	printQuestion(engine)
}

func answerText(engine *attempt.Engine, arg string) {
	q, found := engine.Current()
	if !found || q.Type != model.QuestionTypeEssay {
		fmt.Println("The current question takes no text answer.")
		return
	}
	if err := engine.SetText(q.ID, arg); err != nil {
		fmt.Println("Cannot answer:", err)
		return
	}
	fmt.Println("Saved locally; autosave scheduled.")
}
