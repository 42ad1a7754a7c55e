// Command kvcli is a thin shell over the client package: one-shot
// subcommands (ping/get/set/delete), or an interactive REPL when invoked
// with none.
package main

import "errors"
import "flag"
import "fmt"
import "io"
import "os"
import "strings"

import "github.com/chzyer/readline"

import "github.com/launix-de/kvdaemon/client"

const newprompt = "\033[32m>\033[0m "

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "server address")
	flag.Parse()
	args := flag.Args()

	c, err := client.Connect(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kvcli:", err)
		os.Exit(1)
	}
	defer c.Close()

	if len(args) == 0 {
		repl(c)
		return
	}

	if err := runOnce(c, args); err != nil {
		fmt.Fprintln(os.Stderr, "kvcli:", err)
		os.Exit(1)
	}
}

func runOnce(c *client.Client, args []string) error {
	switch args[0] {
	case "ping":
		if err := c.Ping(); err != nil {
			return err
		}
		fmt.Println("PONG")
		return nil

	case "get":
		if len(args) != 2 {
			return errors.New("usage: get <key>")
		}
		value, err := c.Get(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("GET %s: %s\n", args[1], value)
		return nil

	case "set":
		if len(args) != 3 {
			return errors.New("usage: set <key> <value>")
		}
		if err := c.Set(args[1], []byte(args[2])); err != nil {
			return err
		}
		fmt.Printf("SET %s acknowledged\n", args[1])
		return nil

	case "delete":
		if len(args) != 2 {
			return errors.New("usage: delete <key>")
		}
		if err := c.Delete(args[1]); err != nil {
			return err
		}
		fmt.Printf("DELETE %s acknowledged\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

// repl mirrors the teacher's scm.Repl loop (scm/prompt.go): a readline
// session with history, entered when kvcli is invoked with no subcommand.
func repl(c *client.Client) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".kvcli-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "kvcli:", err)
		os.Exit(1)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return
		} else if err != nil {
			fmt.Fprintln(os.Stderr, "kvcli:", err)
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := runOnce(c, fields); err != nil {
			fmt.Println("error:", err)
		}
	}
}
