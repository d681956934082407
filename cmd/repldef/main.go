// Command repldef is a one-shot CLI for the migration and replication
// engines, with a per-subcommand parseOptions(args) (config, options)
// idiom split into "migrate", "diff", and "sync" subcommands instead of one
// flat flag set.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/repldef/repldef/config"
	"github.com/repldef/repldef/diff"
	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/inspector"
	"github.com/repldef/repldef/migrate"
	"github.com/repldef/repldef/schema"
)

type commonOpts struct {
	Config  string `long:"config" description:"Peer YAML config file" required:"true" value-name:"peer.yaml"`
	Desired string `long:"desired" description:"Desired schema JSON document" required:"true" value-name:"schema.json"`
	Prompt  bool   `long:"password-prompt" description:"Force a password prompt for the local connection, overriding the config file"`
	Verbose bool   `long:"verbose" description:"Pretty-print the planned operations before rendering them"`
}

type migrateOpts struct {
	commonOpts
	DryRun           bool `long:"dry-run" description:"Print DDLs without executing them"`
	AllowDestructive bool `long:"allow-destructive" description:"Permit DROP-kind operations"`
}

type diffOpts struct {
	commonOpts
	AllowDestructive bool `long:"allow-destructive" description:"Include DROP-kind operations in the plan"`
}

type syncOpts struct {
	Config string `long:"config" description:"Peer YAML config file" required:"true" value-name:"peer.yaml"`
	Remote string `long:"remote" description:"Remote peer YAML config file" required:"true" value-name:"remote.yaml"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub, args := os.Args[1], os.Args[2:]
	switch sub {
	case "migrate":
		runMigrate(args)
	case "diff":
		runDiff(args)
	case "sync":
		runSync(args)
	case "--help", "-h", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n\n", sub)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: repldef <migrate|diff|sync> [options]")
}

// plan loads the peer config and the desired schema document, opens a
// connection to the local endpoint, inspects its live schema, and diffs the
// two. The caller owns the returned connection's lifetime.
func plan(cfgPath, desiredPath string, allowDestructive, promptPassword bool) (*enginedb.Conn, []diff.Operation, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	if promptPassword {
		pass, err := readPassword()
		if err != nil {
			return nil, nil, fmt.Errorf("reading password: %w", err)
		}
		cfg.Local.Password = pass
	}

	desiredBytes, err := os.ReadFile(desiredPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", desiredPath, err)
	}
	desired, err := schema.LoadDefinitionJSON(desiredBytes)
	if err != nil {
		return nil, nil, err
	}

	conn, err := config.Dial(cfg.Local)
	if err != nil {
		return nil, nil, err
	}

	current, err := inspector.Inspect(context.Background(), conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	ops, err := diff.Diff(current, desired, diff.Policy{AllowDestructive: allowDestructive})
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	return conn, ops, nil
}

// readPassword prompts on stderr and reads a password from the controlling
// terminal without echoing it.
func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Enter Password: ")
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pass), nil
}

func runMigrate(args []string) {
	var opts migrateOpts
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		log.Fatal(err)
	}

	conn, ops, err := plan(opts.Config, opts.Desired, opts.AllowDestructive, opts.Prompt)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if opts.Verbose {
		pp.Println(ops)
	}

	if opts.DryRun {
		ddls, err := migrate.RenderAll(ops, conn.Engine())
		if err != nil {
			log.Fatal(err)
		}
		for _, ddl := range ddls {
			fmt.Printf("%s;\n", ddl)
		}
		return
	}

	runner := migrate.Runner{Conn: conn, Options: migrate.Options{AllowDestructive: opts.AllowDestructive}}
	err = runner.Apply(context.Background(), ops, func(step migrate.StepResult) {
		if step.Err != nil {
			fmt.Printf("-- failed: %s: %v\n", step.DDL, step.Err)
			return
		}
		fmt.Printf("%s;\n", step.DDL)
	})
	if err != nil {
		log.Fatal(err)
	}
}

func runDiff(args []string) {
	var opts diffOpts
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		log.Fatal(err)
	}

	conn, ops, err := plan(opts.Config, opts.Desired, opts.AllowDestructive, opts.Prompt)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if opts.Verbose {
		pp.Println(ops)
	}

	ddls, err := migrate.RenderAll(ops, conn.Engine())
	if err != nil {
		log.Fatal(err)
	}
	for _, ddl := range ddls {
		fmt.Printf("%s;\n", ddl)
	}
}

func runSync(args []string) {
	var opts syncOpts
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		log.Fatal(err)
	}
	_ = opts
	fmt.Fprintln(os.Stderr, "sync: transport between peers is out of scope for this CLI; use repldefd to run a long-lived peer that exposes Coordinator.Sync over your own transport")
	os.Exit(1)
}
