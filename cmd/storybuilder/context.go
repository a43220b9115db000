package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"storybuilder/internal/api"
	"storybuilder/internal/config"
	"storybuilder/internal/logging"
	"storybuilder/internal/session"
	"storybuilder/internal/story"
	"storybuilder/internal/workspace"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// cliLogger surfaces warnings and errors on stderr without drowning command
// output in info logs.
func (c *commandContext) cliLogger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.Options{Level: "warn", Format: cfg.Logging.Format})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) openWorkspace(cmd *cobra.Command, flushOnClose bool) (*workspace.Workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Open(cmd.Context(), cfg, workspace.Options{
		Logger:       c.cliLogger(),
		Console:      cmd.ErrOrStderr(),
		FlushOnClose: flushOnClose,
	})
	if err != nil {
		if errors.Is(err, workspace.ErrLocked) {
			return nil, fmt.Errorf("%w; if `storybuilder serve` is running, edit through its API or stop it first", err)
		}
		return nil, err
	}
	return ws, nil
}

// withSession opens the workspace, runs fn and closes it again. Mutating
// commands end with an explicit save.
func (c *commandContext) withSession(cmd *cobra.Command, mutate bool, fn func(*session.Session) error) (err error) {
	ws, err := c.openWorkspace(cmd, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ws.Close(cmd.Context()); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	sess := ws.Session()
	if err := fn(sess); err != nil {
		return err
	}
	if mutate {
		if res := sess.Save(cmd.Context(), true); res.Err != nil {
			return fmt.Errorf("save story: %w", res.Err)
		}
	}
	return nil
}

func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// resolveNode accepts a 1-based position or a node ID.
func resolveNode(sess *session.Session, ref string) (story.Node, int, error) {
	ref = strings.TrimSpace(ref)
	nodes := sess.Nodes()
	if pos, err := strconv.Atoi(ref); err == nil {
		if pos < 1 || pos > len(nodes) {
			return story.Node{}, -1, fmt.Errorf("node %d: %w (story has %d nodes)", pos, session.ErrNodeNotFound, len(nodes))
		}
		return nodes[pos-1], pos - 1, nil
	}
	for i, n := range nodes {
		if n.ID == ref {
			return n, i, nil
		}
	}
	return story.Node{}, -1, fmt.Errorf("node %q: %w", ref, session.ErrNodeNotFound)
}

// parsePosition converts a 1-based position to an index.
func parsePosition(raw string) (int, error) {
	pos, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || pos < 1 {
		return 0, fmt.Errorf("invalid position %q: positions start at 1", raw)
	}
	return pos - 1, nil
}

// contentArg joins args into node content; no args or a lone "-" reads stdin.
func contentArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read content from stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return strings.Join(args, " "), nil
}

// promptConfirmer asks yes/no questions on the command's streams.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(cmd *cobra.Command) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
}

func (p *promptConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	return isYes(line)
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func truncateText(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
