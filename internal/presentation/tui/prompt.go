package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/davinci/pkg/collector"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/idp"
	"github.com/aretw0/davinci/pkg/node"
)

// ErrNoInput is returned when input ends before a step is complete.
var ErrNoInput = errors.New("input closed")

// Prompter renders steps and reads collector values from a terminal.
type Prompter struct {
	in      *bufio.Reader
	out     io.Writer
	fd      int
	tty     bool
	render  func(string) (string, error)
	profile termenv.Profile
}

// NewPrompter reads from in. Secrets are read without echo when in is a
// terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		in:      bufio.NewReader(in),
		out:     out,
		fd:      -1,
		render:  func(s string) (string, error) { return s + "\n", nil },
		profile: termenv.Ascii,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd, p.tty = int(f.Fd()), true
		p.render = NewRenderer()
		p.profile = termenv.ColorProfile()
	}
	return p
}

// Step shows the step, fills every input collector and returns the action
// the user picked: a submit button, a flow trigger or a social login button.
// It returns nil when the step offers no action.
func (p *Prompter) Step(n *node.ContinueNode) (collector.Collector, error) {
	head := "## " + n.Name()
	if d := n.Description(); d != "" {
		head += "\n\n" + d
	}
	p.markdown(head)

	var actions []collector.Collector
	for _, c := range n.Collectors() {
		var err error
		switch c := c.(type) {
		case *collector.Label:
			p.markdown(c.Content())
		case collector.Submitter, collector.FlowTrigger, *idp.Collector:
			actions = append(actions, c)
		case *collector.Password:
			err = p.secret(c)
		case *collector.SingleSelect:
			err = p.single(c)
		case *collector.MultiSelect:
			err = p.multi(c)
		case collector.Valuer:
			err = p.text(c)
		}
		if err != nil {
			return nil, err
		}
	}

	return p.choose(actions)
}

// Problems prints validation messages.
func (p *Prompter) Problems(msgs map[string][]string) {
	for key, list := range msgs {
		for _, m := range list {
			p.Error(key + ": " + m)
		}
	}
}

// Error prints an error line.
func (p *Prompter) Error(msg string) {
	fmt.Fprintln(p.out, termenv.String("✗ "+msg).Foreground(p.profile.Color("#f87171")))
}

// Info prints a system line.
func (p *Prompter) Info(msg string) {
	fmt.Fprintln(p.out, termenv.String(">>> "+msg).Faint())
}

// Success prints the authenticated user.
func (p *Prompter) Success(u *domain.User) {
	fmt.Fprintln(p.out, termenv.String("✓ authenticated").Foreground(p.profile.Color("#4ade80")).Bold())
	if u == nil {
		return
	}
	if u.Subject != "" {
		fmt.Fprintf(p.out, "  subject: %s\n", u.Subject)
	}
	fmt.Fprintf(p.out, "  %s: %s\n", u.TokenType, u.Token)
}

func (p *Prompter) markdown(md string) {
	if strings.TrimSpace(md) == "" {
		return
	}
	out, err := p.render(md)
	if err != nil {
		out = md + "\n"
	}
	fmt.Fprint(p.out, out)
}

// line reads one answer. Answers failing SanitizeInput are reported and
// asked again.
func (p *Prompter) line(prompt string) (string, error) {
	for {
		fmt.Fprint(p.out, prompt)
		s, err := p.in.ReadString('\n')
		if err != nil && (err != io.EOF || s == "") {
			return "", ErrNoInput
		}
		clean, serr := SanitizeInput(strings.TrimRight(s, "\r\n"))
		if serr == nil {
			return clean, nil
		}
		p.Error(serr.Error())
		if err == io.EOF {
			return "", ErrNoInput
		}
	}
}

func label(c collector.Collector) string {
	l := c.Label()
	if l == "" {
		l = c.Key()
	}
	if c.Required() {
		l += " *"
	}
	return l
}

func (p *Prompter) text(c collector.Valuer) error {
	prompt := label(c)
	def := fmt.Sprint(c.Value())
	if def != "" && def != "<nil>" {
		prompt += " [" + def + "]"
	}
	s, err := p.line(prompt + ": ")
	if err != nil {
		return err
	}
	if s != "" {
		c.SetValue(s)
	}
	return nil
}

func (p *Prompter) secret(c *collector.Password) error {
	if !p.tty {
		return p.text(c)
	}
	fmt.Fprint(p.out, label(c)+": ")
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return ErrNoInput
	}
	clean, err := SanitizeInput(string(b))
	if err != nil {
		p.Error(err.Error())
		return p.secret(c)
	}
	c.SetValue(clean)
	return nil
}

func (p *Prompter) menu(title string, items []string) {
	fmt.Fprintln(p.out, termenv.String(title).Bold())
	for i, it := range items {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, it)
	}
}

func pick(s string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func (p *Prompter) single(c *collector.SingleSelect) error {
	opts := c.Options()
	items := make([]string, len(opts))
	for i, o := range opts {
		items[i] = o.Label
	}
	p.menu(label(c), items)
	for {
		s, err := p.line("> ")
		if err != nil {
			return err
		}
		if s == "" && !c.Required() {
			return nil
		}
		if i, ok := pick(s, len(opts)); ok {
			c.SetValue(opts[i].Value)
			return nil
		}
		p.Error("pick a number from the list")
	}
}

func (p *Prompter) multi(c *collector.MultiSelect) error {
	opts := c.Options()
	items := make([]string, len(opts))
	for i, o := range opts {
		items[i] = o.Label
	}
	p.menu(label(c)+" (comma separated)", items)
	s, err := p.line("> ")
	if err != nil {
		return err
	}
	var values []string
	for _, part := range strings.Split(s, ",") {
		if i, ok := pick(part, len(opts)); ok {
			values = append(values, opts[i].Value)
		}
	}
	c.SetValue(values)
	return nil
}

func (p *Prompter) choose(actions []collector.Collector) (collector.Collector, error) {
	switch len(actions) {
	case 0:
		return nil, nil
	case 1:
		if _, ok := actions[0].(collector.Submitter); ok {
			return actions[0], nil
		}
	}

	items := make([]string, len(actions))
	for i, a := range actions {
		items[i] = a.Label()
		if items[i] == "" {
			items[i] = a.Key()
		}
	}
	p.menu("Continue with", items)
	for {
		s, err := p.line("> ")
		if err != nil {
			return nil, err
		}
		if i, ok := pick(s, len(actions)); ok {
			return actions[i], nil
		}
		p.Error("pick a number from the list")
	}
}
