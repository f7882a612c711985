package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ideaspark/internal/config"
	"ideaspark/internal/export"
	"ideaspark/internal/session"
	"ideaspark/internal/stage"
)

var commands = []string{
	"(none)     open the interactive workflow",
	"configure  send OpenAI and Reddit credentials to the service",
	"status     print the saved session's progress",
	"export     write " + export.FileName + " for the saved session",
	"reset      discard the saved session",
	"init       create .ideaspark/config.json in the current directory",
}

func printCommands(out io.Writer) {
	fmt.Fprintln(out, "usage: ideaspark [flags] [command]")
	fmt.Fprintln(out, "commands:")
	for _, c := range commands {
		fmt.Fprintf(out, "  %s\n", c)
	}
}

type credentialField struct {
	prompt string
	env    string
	secret bool
	dst    *string
}

// promptCredentials asks for each credential. A blank answer keeps the
// value from the environment, if any.
func promptCredentials(in lineInput, getenv func(string) string) (session.Credentials, error) {
	var creds session.Credentials
	fields := []credentialField{
		{"OpenAI API key", "OPENAI_API_KEY", true, &creds.OpenAIAPIKey},
		{"Reddit client ID", "REDDIT_CLIENT_ID", false, &creds.RedditClientID},
		{"Reddit client secret", "REDDIT_CLIENT_SECRET", true, &creds.RedditClientSecret},
		{"Reddit user agent", "REDDIT_USER_AGENT", false, &creds.RedditUserAgent},
	}

	for _, f := range fields {
		fallback := strings.TrimSpace(getenv(f.env))
		prompt := f.prompt + ": "
		if fallback != "" {
			prompt = f.prompt + " [from " + f.env + "]: "
		}
		read := in.ReadLine
		if f.secret {
			read = in.ReadSecret
		}
		v, err := read(prompt)
		if err != nil {
			return session.Credentials{}, err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			v = fallback
		}
		*f.dst = v
	}

	var missing []string
	if creds.OpenAIAPIKey == "" {
		missing = append(missing, "OpenAI API key")
	}
	if creds.RedditClientID == "" {
		missing = append(missing, "Reddit client ID")
	}
	if creds.RedditClientSecret == "" {
		missing = append(missing, "Reddit client secret")
	}
	if len(missing) > 0 {
		return session.Credentials{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return creds, nil
}

func runConfigure(ctx context.Context, in lineInput, ctl *stage.Controller, getenv func(string) string, out io.Writer) error {
	creds, err := promptCredentials(in, getenv)
	if err != nil {
		return err
	}
	if err := ctl.ConfigureCredentials(ctx, creds); err != nil {
		return err
	}
	fmt.Fprintln(out, "API configuration successful")
	return nil
}

func runStatus(ctl *stage.Controller, out io.Writer) {
	s := ctl.Snapshot()
	fmt.Fprintf(out, "stage:      %d/%d %s (%.0f%%)\n", int(s.Stage)+1, session.StageCount, s.Stage, s.Stage.Progress())
	fmt.Fprintf(out, "niche:      %s\n", orDash(s.SelectedNiche))
	fmt.Fprintf(out, "subreddits: %s\n", orDash(strings.Join(s.SelectedSubreddits, ", ")))
	fmt.Fprintf(out, "posts:      %d selected of %d\n", len(s.SelectedRedditPosts), len(s.RedditSearchResults))
	fmt.Fprintf(out, "clusters:   %d\n", s.ClusterCount())
	fmt.Fprintf(out, "ideas:      %d\n", len(s.BusinessIdeas))
}

func runExport(ctl *stage.Controller, dir string, out io.Writer) error {
	path, err := export.WriteFile(dir, ctl.Snapshot())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

func runReset(ctl *stage.Controller, out io.Writer) error {
	if _, err := ctl.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(out, "session cleared")
	return nil
}

func runInit(dir, serviceURL string, out io.Writer) error {
	path, err := config.InitProjectConfigScaffold(dir)
	if err != nil {
		return err
	}
	if strings.TrimSpace(serviceURL) != "" {
		if err := config.WriteServiceURL(dir, serviceURL); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "project config: %s\n", path)
	return nil
}

var errUnknownCommand = errors.New("unknown command")

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
