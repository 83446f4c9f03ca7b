// Package console is the interactive front end of the inventory: a
// line-oriented session that reads commands from an input stream and renders
// tables to an output stream.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"rawmat/internal/db"
	"rawmat/internal/inventory"
	applog "rawmat/internal/log"
)

const prompt = "rawmat> "

// Options tune a Session.
type Options struct {
	// BackupDir receives backups written without an explicit path.
	BackupDir string
	// Location is used to interpret production timestamps typed by the user.
	Location *time.Location
	Now      func() time.Time
}

// Session is one interactive console bound to an inventory.
type Session struct {
	inv       *inventory.Inventory
	in        *bufio.Scanner
	out       io.Writer
	backupDir string
	loc       *time.Location
	now       func() time.Time
	commands  map[string]command
}

type command func(ctx context.Context, s *Session, args []string) error

// errQuit ends the session loop.
var errQuit = errors.New("quit")

// New builds a session reading from in and writing to out.
func New(inv *inventory.Inventory, in io.Reader, out io.Writer, opts Options) *Session {
	if opts.BackupDir == "" {
		opts.BackupDir = "."
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		inv:       inv,
		in:        bufio.NewScanner(in),
		out:       out,
		backupDir: opts.BackupDir,
		loc:       opts.Location,
		now:       opts.Now,
	}
	s.commands = map[string]command{
		"stock":   runStock,
		"product": runProduct,
		"produce": runProduce,
		"history": runHistory,
		"backup":  runBackup,
		"help":    runHelp,
		"quit":    func(context.Context, *Session, []string) error { return errQuit },
	}
	s.commands["products"] = s.commands["product"]
	s.commands["exit"] = s.commands["quit"]
	return s
}

// Run reads and executes commands until quit or end of input. Command errors
// are reported to the user and the session continues; only a failure to read
// input is returned.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Raw materials inventory. Type \"help\" for commands.")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.out, prompt)
		line, ok := s.readLine()
		if !ok {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.report(ctx, err)
		}
	}
}

// Execute runs a single command line.
func (s *Session) Execute(ctx context.Context, line string) error {
	args, err := shellwords.Parse(line)
	if err != nil {
		return fmt.Errorf("%w: %v", inventory.ErrValidation, err)
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := s.commands[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("%w: unknown command %q, type \"help\"", inventory.ErrValidation, args[0])
	}
	return cmd(ctx, s, args[1:])
}

func (s *Session) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// confirm asks a yes/no question; anything but y or yes is a no.
func (s *Session) confirm(question string) bool {
	fmt.Fprintf(s.out, "%s [y/N] ", question)
	answer, ok := s.readLine()
	if !ok {
		fmt.Fprintln(s.out)
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		fmt.Fprintln(s.out, "Cancelled.")
		return false
	}
}

func (s *Session) report(ctx context.Context, err error) {
	var shortage *inventory.InsufficientStockError
	switch {
	case errors.As(err, &shortage):
		fmt.Fprintln(s.out, "Cannot confirm production. These ingredients are insufficient:")
		for _, line := range shortage.Shortages {
			fmt.Fprintf(s.out, " - %s: need %s kg, have %s kg, short %s kg\n",
				line.Ingredient, formatKg(line.Required), formatKg(line.Available), formatKg(line.Shortfall))
		}
	case errors.Is(err, inventory.ErrStorage):
		applog.Error(ctx, "storage failure", "err", err)
		fmt.Fprintf(s.out, "Storage error: %v\n", err)
	default:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func runHelp(_ context.Context, s *Session, _ []string) error {
	fmt.Fprint(s.out, `Commands:
  stock                                   list stock
  stock find <text>                       search ingredients by name
  stock add <name> <kg> [supplier]        add an ingredient
  stock restock <name> <kg>               add kilograms to an ingredient
  stock edit <name> <kg> [supplier]       set quantity and supplier
  stock delete <name>                     delete an ingredient
  product                                 list products
  product show <name>                     show a product formula
  product add <name> <ingredient=pct>...  save a new product (max 30 rows)
  product edit <name> <ingredient=pct>... replace a product formula
  product delete <name>                   delete a product
  produce check <product> <kg>            check stock for a batch
  produce confirm <product> <kg> [--at "YYYY-MM-DD HH:MM:SS"] [--batch NO]
                                          record a batch and deduct stock
  history                                 list production, newest first
  history show <id>                       show what a batch consumed
  history delete <id>                     delete a batch and restore stock
  backup [path]                           write a verified database backup
  quit                                    leave
Quote names that contain spaces, e.g. stock add "Citric Acid" 10 Acme
`)
	return nil
}

func runBackup(ctx context.Context, s *Session, args []string) error {
	if len(args) > 1 {
		return usageError("backup [path]")
	}
	dest := filepath.Join(s.backupDir, fmt.Sprintf("raw_materials_%s.db", s.now().Format("20060102_150405")))
	if len(args) == 1 {
		dest = args[0]
	}
	result, err := db.Backup(ctx, s.inv.DB(), dest)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Database backed up to %s (%d bytes, blake2b %s)\n", result.Path, result.Bytes, result.Digest)
	return nil
}

func usageError(usage string) error {
	return fmt.Errorf("%w: usage: %s", inventory.ErrValidation, usage)
}
