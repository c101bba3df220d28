package play

import (
	"bufio"
	"context"
	"fmt"
	"github.com/myrjola/casebook/cmd/cli/setup"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/models"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

var Group = &cobra.Group{
	ID:    "play",
	Title: "Playing",
}

func init() {
	Command.Flags().String("difficulty", "", "start a case of this difficulty right away (easy, medium, hard)")
	Command.Flags().String("language", "en", "language of the case (en, ar)")
}

var Command = &cobra.Command{
	Use:     "play",
	GroupID: "play",
	Short:   "Play in the terminal",
	Long:    `Starts an interactive session. Type help for the list of commands.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := setup.Open(ctx)
		if err != nil {
			return err //nolint:wrapcheck // already annotated
		}
		defer func() {
			_ = env.Close()
		}()
		oracle, err := env.Oracle(ctx)
		if err != nil {
			return err //nolint:wrapcheck // already annotated
		}
		controller := game.NewController(oracle, env.History, env.Logger)

		langFlag, _ := cmd.Flags().GetString("language")
		lang, err := models.ParseLanguage(langFlag)
		if err != nil {
			return err //nolint:wrapcheck // already annotated
		}
		controller.SetLanguage(lang)

		var start string
		if difficultyFlag, _ := cmd.Flags().GetString("difficulty"); difficultyFlag != "" {
			if _, err = models.ParseDifficulty(difficultyFlag); err != nil {
				return err //nolint:wrapcheck // already annotated
			}
			start = "new " + difficultyFlag
		}
		return Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), controller, start)
	},
}

const help = `Commands:
  new [easy|medium|hard]   start a new case
  history                  list recorded cases
  resume <n>               replay a recorded case
  forget <n>               remove a recorded case
  lang <en|ar>             change the language
  case                     show the case board
  examine <n>              mark a clue as examined, again to unmark
  talk <n>                 interrogate a suspect
  ask <question>           question the suspect
  back                     leave the interrogation
  deduce                   get ready to name the culprit
  accuse <n> <reasoning>   name the culprit and explain why
  notready                 go back to investigating
  return                   back to the lobby after the verdict
  abort                    abandon the case
  quit                     leave the game`

type repl struct {
	out        io.Writer
	controller *game.Controller
}

// Run reads commands from in until it is exhausted or the player quits. start, when not empty, is executed first.
func Run(ctx context.Context, in io.Reader, out io.Writer, controller *game.Controller, start string) error {
	r := repl{out: out, controller: controller}
	r.println("Welcome to Casebook. Type help for the list of commands.")
	if start != "" {
		r.exec(ctx, start)
	}
	r.prompt()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if quit := r.exec(ctx, line); quit {
				return nil
			}
		}
		r.prompt()
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read input")
	}
	return nil
}

func (r *repl) println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

func (r *repl) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

func (r *repl) prompt() {
	r.printf("%s> ", r.controller.State())
}

func (r *repl) fail(err error) {
	r.printf("! %v\n", err)
}

// exec runs one command line and reports whether the player wants to quit.
func (r *repl) exec(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)
	c := r.controller

	var err error
	switch name {
	case "quit", "exit":
		return true
	case "help":
		r.println(help)
		return false
	case "lang":
		var lang models.Language
		if lang, err = models.ParseLanguage(arg); err == nil {
			c.SetLanguage(lang)
			r.printf("Language set to %s.\n", lang.Name())
		}
	case "new":
		err = r.newCase(ctx, arg)
	case "history":
		err = r.history(ctx)
	case "resume":
		var id string
		if id, err = r.entryID(ctx, arg); err == nil {
			err = c.ResumeCase(ctx, id)
		}
	case "forget":
		var id string
		if id, err = r.entryID(ctx, arg); err == nil {
			if err = c.RemoveHistory(ctx, id); err == nil {
				r.println("Removed.")
			}
		}
	case "case":
	case "examine":
		var clue models.Clue
		if clue, err = pick(c.View().Clues, arg); err == nil {
			err = c.ToggleClue(ctx, clue.ID)
		}
	case "talk":
		var suspect models.Suspect
		if suspect, err = pick(c.View().Suspects, arg); err == nil {
			err = c.SelectSuspect(ctx, suspect.ID)
		}
	case "ask":
		var reply string
		if reply, err = c.Ask(ctx, arg); err == nil {
			r.printf("%s: %s\n", c.View().Suspect.Name, reply)
			return false
		}
	case "back":
		err = c.LeaveInterrogation(ctx)
	case "deduce":
		err = c.BeginDeduction(ctx)
	case "accuse":
		err = r.accuse(ctx, arg)
	case "notready":
		err = c.NotReady(ctx)
	case "return":
		err = c.Return(ctx)
	case "abort":
		err = c.Abort(ctx)
	default:
		r.printf("Unknown command %q. Type help for the list of commands.\n", name)
		return false
	}

	if err != nil {
		r.fail(err)
		return false
	}
	if name != "history" && name != "forget" && name != "lang" {
		r.render(c.View())
	}
	return false
}

func (r *repl) newCase(ctx context.Context, arg string) error {
	difficulty := models.DifficultyEasy
	if arg != "" {
		var err error
		if difficulty, err = models.ParseDifficulty(arg); err != nil {
			return err //nolint:wrapcheck // already annotated
		}
	}
	r.printf("Writing a %s case...\n", strings.ToLower(string(difficulty)))
	return r.controller.StartCase(ctx, difficulty, r.controller.View().Language)
}

func (r *repl) history(ctx context.Context) error {
	entries, err := r.controller.History(ctx)
	if err != nil {
		return err //nolint:wrapcheck // already annotated
	}
	if len(entries) == 0 {
		r.println("No cases yet.")
	}
	for i, entry := range entries {
		r.printf("%d. %s (%s)\n", i+1, entry.Details.Case.Title, entry.Details.Case.Difficulty)
	}
	return nil
}

// entryID resolves a 1-based position in the history list, or passes an entry id through.
func (r *repl) entryID(ctx context.Context, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		if arg == "" {
			return "", errors.New("which case? Give its number from the history list")
		}
		return arg, nil
	}
	entries, err := r.controller.History(ctx)
	if err != nil {
		return "", err //nolint:wrapcheck // already annotated
	}
	if n < 1 || n > len(entries) {
		return "", errors.New("no such case in the history", slog.Int("n", n))
	}
	return entries[n-1].ID, nil
}

func (r *repl) accuse(ctx context.Context, arg string) error {
	choice, reasoning, _ := strings.Cut(arg, " ")
	suspect, err := pick(r.controller.View().Suspects, choice)
	if err != nil {
		return err
	}
	r.println("Conan is reviewing your deduction...")
	_, err = r.controller.SubmitDeduction(ctx, models.Deduction{SuspectID: suspect.ID, Reasoning: reasoning})
	return err //nolint:wrapcheck // already annotated
}

// pick returns the 1-based nth item.
func pick[T any](items []T, arg string) (T, error) {
	var zero T
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(items) {
		return zero, errors.New("expected a number from the list", slog.String("got", arg))
	}
	return items[n-1], nil
}

func (r *repl) render(view game.View) {
	switch view.State {
	case game.StateLobby:
		r.println("You are in the lobby. Start a case with new, or resume one from the history.")
	case game.StateInvestigating:
		r.printf("\n%s\n%s\nLocation: %s, difficulty: %s\n\nClues:\n",
			view.Case.Title, view.Case.Description, view.Case.Location, view.Case.Difficulty)
		for i, clue := range view.Clues {
			mark := " "
			if view.Discovered(clue.ID) {
				mark = "x"
			}
			r.printf("  %d. [%s] %s (%s): %s\n", i+1, mark, clue.Name, clue.Type, clue.Description)
		}
		r.println("\nSuspects:")
		for i, suspect := range view.Suspects {
			r.printf("  %d. %s, %s\n", i+1, suspect.Name, suspect.Role)
		}
	case game.StateInterrogating:
		r.printf("You are questioning %s (%s). %s\n", view.Suspect.Name, view.Suspect.Role, view.Suspect.Description)
		for _, msg := range view.Transcript {
			speaker := "You"
			if msg.Speaker == models.SpeakerSuspect {
				speaker = view.Suspect.Name
			}
			r.printf("%s: %s\n", speaker, msg.Text)
		}
	case game.StateDeducting:
		r.println("Who did it? accuse <n> <reasoning>")
		for i, suspect := range view.Suspects {
			r.printf("  %d. %s, %s. Motive: %s\n", i+1, suspect.Name, suspect.Role, suspect.Motive)
		}
	case game.StateResult:
		verdict := "Wrong culprit."
		if view.Evaluation.IsCorrect {
			verdict = "Case solved!"
		}
		r.printf("%s Score: %.0f/100\n%s\n\"%s\"\n", verdict, view.Evaluation.Score, view.Evaluation.Feedback,
			view.Evaluation.Comment)
	}
}
